package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiwangfds/structview/internal/logger"
)

// Sizer 查询存储文件的大小，用于补全旧记录缺失的 fileSize
type Sizer interface {
	Size(name string) (int64, error)
}

// MigrationFailure 单条记录的迁移失败原因
type MigrationFailure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// MigrationReport 迁移统计
type MigrationReport struct {
	Total    int                `json:"total"`
	Migrated int                `json:"migrated"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Failures []MigrationFailure `json:"failures,omitempty"`
}

// Migrate 把 src 中的记录按从旧到新的顺序复制到 dst
//
// dst 中已存在的ID跳过，可重复执行。sizer 不为nil时为 fileSize 为0的记录补全大小。
// 单条记录失败不会中断迁移，只有读取 src 失败时返回错误。
func Migrate(ctx context.Context, src, dst Store, sizer Sizer) (*MigrationReport, error) {
	items, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source ledger: %w", err)
	}

	report := &MigrationReport{Total: len(items)}
	for i := len(items) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		item := items[i]
		item.Seq = 0

		exists, err := dst.Exists(ctx, item.ID)
		if err != nil {
			report.fail(item.ID, err)
			continue
		}
		if exists {
			logger.Debugf("Skipping existing record %s", item.ID)
			report.Skipped++
			continue
		}

		if item.FileSize == 0 && sizer != nil {
			if size, err := sizer.Size(item.Path); err == nil {
				item.FileSize = size
			} else {
				logger.Warnf("无法获取记录 %s 的文件大小: %v", item.ID, err)
			}
		}

		if err := dst.Append(ctx, &item); err != nil {
			if errors.Is(err, ErrDuplicateID) {
				report.Skipped++
				continue
			}
			report.fail(item.ID, err)
			continue
		}
		report.Migrated++
	}

	logger.Infof("Migration finished: total=%d migrated=%d skipped=%d failed=%d",
		report.Total, report.Migrated, report.Skipped, report.Failed)
	return report, nil
}

func (r *MigrationReport) fail(id string, err error) {
	logger.Errorf("迁移记录 %s 失败: %v", id, err)
	r.Failed++
	r.Failures = append(r.Failures, MigrationFailure{ID: id, Err: err.Error()})
}

// SizerFunc 将函数适配为 Sizer
type SizerFunc func(name string) (int64, error)

func (f SizerFunc) Size(name string) (int64, error) { return f(name) }

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*JSONStore)(nil)
	_ Store = (*GormStore)(nil)
	_ Store = (*MongoStore)(nil)
)
