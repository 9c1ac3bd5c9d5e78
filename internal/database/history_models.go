// Package database 定义了结构文件上传历史的数据模型
// 以及关系型数据库的连接初始化
package database

// HistoryItem 上传历史记录
// 每次成功上传生成一条记录，创建后不再修改
// 同一结构体同时用于JSON账本、关系型数据库和文档数据库
type HistoryItem struct {
	Seq          uint   `gorm:"primarykey" json:"-" bson:"-"`                                     // 自增序号，仅用于同一毫秒内的排序
	ID           string `gorm:"column:item_id;uniqueIndex;not null;size:36" json:"id" bson:"id"` // 对外暴露的唯一标识（短码或UUID）
	OriginalName string `gorm:"not null;size:255" json:"originalName" bson:"originalName"`       // 上传时的原始文件名，仅用于展示和下载
	Path         string `gorm:"not null;size:255" json:"path" bson:"path"`                       // 存储文件名：ID + 原始扩展名
	FileSize     int64  `gorm:"not null" json:"fileSize" bson:"fileSize"`                        // 文件大小，单位为字节
	Timestamp    int64  `gorm:"not null;index" json:"timestamp" bson:"timestamp"`                // 上传时间，Unix毫秒
}

// TableName 指定HistoryItem模型对应的数据库表名
func (HistoryItem) TableName() string {
	return "history_items"
}
