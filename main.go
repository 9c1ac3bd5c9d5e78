// StructView 保存上传的 mmCIF 结构文件及其上传历史，供浏览器内的分子查看器加载
package main

import (
	"errors"
	"fmt"
	"os"
)

// version 构建时通过 -ldflags 设置
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// exitError 以指定退出码结束进程，信息已由命令自行输出
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
