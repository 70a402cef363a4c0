// Package validate 注册 gin 请求绑定使用的自定义校验标签
package validate

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TagWeekCount 授课/展开周数：1..maxWeeks
const TagWeekCount = "weekcount"

// Register 向 gin 默认校验器注册自定义标签，须在处理首个请求前调用
func Register(maxWeeks int) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎类型不是 *validator.Validate")
	}
	return v.RegisterValidation(TagWeekCount, weekCount(maxWeeks))
}

func weekCount(maxWeeks int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 1 && n <= int64(maxWeeks)
	}
}
