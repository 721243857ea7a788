package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhtranslations "github.com/go-playground/validator/v10/translations/zh"

	"csm-matcher/internal/calendar"
	apperrors "csm-matcher/pkg/errors"
	"csm-matcher/pkg/response"
)

// 自定义校验标签
const (
	hhmmTag    = "hhmm"    // "HH:mm" 时刻
	weekdayTag = "weekday" // 周一至周五
)

var (
	translator   ut.Translator
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators 在 gin 的校验引擎上注册自定义规则与中文错误信息，可重复调用
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin 校验引擎不是 validator/v10")
			return
		}

		// 错误中的字段名使用 JSON 名称
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err := v.RegisterValidation(hhmmTag, hhmmValidation); err != nil {
			registerErr = err
			return
		}
		if err := v.RegisterValidation(weekdayTag, weekdayValidation); err != nil {
			registerErr = err
			return
		}

		locale := zh.New()
		translator, _ = ut.New(locale, locale).GetTranslator("zh")
		if err := zhtranslations.RegisterDefaultTranslations(v, translator); err != nil {
			registerErr = err
			return
		}
		registerCustomTranslation(v, hhmmTag, "{0}必须是 HH:mm 格式的时刻")
		registerCustomTranslation(v, weekdayTag, "{0}必须是周一至周五之一")
	})
	return registerErr
}

func registerCustomTranslation(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

func hhmmValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len("15:04") {
		return false
	}
	_, err := calendar.ParseClock(s)
	return err == nil
}

func weekdayValidation(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDay(fl.Field().String())
	return err == nil
}

// handleBindError 请求体绑定失败：校验错误带上首个字段路径与中文原因
func handleBindError(c *gin.Context, err error) {
	if bodyTooLarge(c, err) {
		return
	}
	// 自定义 UnmarshalJSON（如 calendar.Time）在解码阶段返回的校验错误
	if ve, ok := apperrors.AsValidation(err); ok {
		response.Invalid(c, ve)
		return
	}
	if ve := firstFieldError(err); ve != nil {
		response.Invalid(c, ve)
		return
	}
	response.BadRequest(c, 10001, "参数校验失败")
}

// bodyTooLarge 读取请求体时触发了 BodyLimit 的上限，写入 413
func bodyTooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	response.TooLarge(c, mbe.Limit)
	return true
}

// firstFieldError 顶层为数组的请求体由 gin 逐个元素校验，路径补上下标
func firstFieldError(err error) *apperrors.ValidationError {
	var items binding.SliceValidationError
	if errors.As(err, &items) {
		for i, itemErr := range items {
			if itemErr == nil {
				continue
			}
			if ve := firstFieldError(itemErr); ve != nil {
				ve.Field = fmt.Sprintf("[%d].%s", i, ve.Field)
				return ve
			}
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return nil
	}
	fe := verrs[0]
	reason := fe.Error()
	if translator != nil {
		reason = fe.Translate(translator)
	}
	return &apperrors.ValidationError{Field: fieldPath(fe.Namespace()), Reason: reason}
}

// fieldPath 去掉顶层结构体名："ReplaceSlotsRequest.slots[0].maxMentors" → "slots[0].maxMentors"
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
