package main

import (
	"github.com/spf13/cobra"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/scheduling"
	"tutorhub/backend/internal/service"
)

func newValidateCmd(load configLoader) *cobra.Command {
	var (
		file     string
		existing string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验周课表，可选对照已有班级检测跨班级冲突",
		Example: `  schedulectl validate -f class.json
  schedulectl validate -f class.json --existing tutor_classes.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var def scheduling.ClassDefinition
			if err := readJSON(cmd, file, &def); err != nil {
				return err
			}
			req := &dto.ValidateScheduleRequest{ClassID: def.ClassID, Slots: def.Schedule}
			if existing != "" {
				if err := readJSON(cmd, existing, &req.Existing); err != nil {
					return err
				}
			}

			svc := service.NewScheduleService(&cfg.Schedule, service.NewEngine(&cfg.Schedule))
			result := svc.Validate(cmd.Context(), req)
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
			if !result.Valid || len(result.CrossConflicts) > 0 {
				return errInvalidSchedule
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "班级定义 JSON（含 schedule_slots），- 表示标准输入")
	cmd.Flags().StringVar(&existing, "existing", "", "已有班级定义 JSON 数组")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
