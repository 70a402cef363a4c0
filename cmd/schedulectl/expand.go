package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/service"
)

func newExpandCmd(load configLoader) *cobra.Command {
	var (
		file   string
		weeks  int
		anchor string
	)

	cmd := &cobra.Command{
		Use:     "expand",
		Short:   "将周课表展开为具体课次",
		Example: `  schedulectl expand -f class.json --weeks 16 --anchor 2026-03-02`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			req := &dto.ExpandScheduleRequest{Weeks: weeks, AnchorDate: anchor}
			if req.AnchorDate == "" {
				req.AnchorDate = time.Now().In(cfg.Schedule.Location()).Format("2006-01-02")
			}
			if err := readJSON(cmd, file, &req.Class); err != nil {
				return err
			}

			svc := service.NewScheduleService(&cfg.Schedule, service.NewEngine(&cfg.Schedule))
			sessions, err := svc.Expand(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("展开失败: %w", err)
			}
			return writeJSON(cmd, sessions)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "班级定义 JSON（含 schedule_slots），- 表示标准输入")
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 0, "展开周数")
	cmd.Flags().StringVar(&anchor, "anchor", "", "锚定日期 YYYY-MM-DD（默认今天）")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("weeks")
	return cmd
}
