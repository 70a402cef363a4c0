package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tutorhub/backend/config"
)

// errInvalidSchedule 校验未通过；结果已输出，仅用于设置退出码
var errInvalidSchedule = errors.New("课表校验未通过")

type configLoader func() (*config.Config, error)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "schedulectl",
		Short:         "周课表校验、课次展开与数据库迁移工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	load := func() (*config.Config, error) {
		return config.LoadForTooling(configPath)
	}
	root.AddCommand(
		newValidateCmd(load),
		newExpandCmd(load),
		newMigrateCmd(load),
	)
	return root
}

// readJSON 读取 JSON 文件，path 为 "-" 时读取标准输入
func readJSON(cmd *cobra.Command, path string, v interface{}) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("打开 %s 失败: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
