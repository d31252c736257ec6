package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/response"
)

type (
	OTPRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		Email     string `json:"email" validate:"required"`
	}

	OTPVerifyRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		Code      string `json:"code" validate:"required,otpcode"`
	}

	AdminLoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	SubmitRequest struct {
		Answers []response.Answer `json:"answers" validate:"dive"`
	}

	LoginResponse struct {
		Token   string `json:"token"`
		IsAdmin bool   `json:"is_admin"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	ImportResponse struct {
		Imported int `json:"imported"`
	}

	ResetResponse struct {
		Deleted int64 `json:"deleted"`
	}
)

func (r *OTPRequest) Validate(validate *validator.Validate) error {
	r.StudentID = core.CleanString(r.StudentID)
	r.Email = core.CleanString(r.Email)
	return validate.Struct(r)
}

func (r *OTPVerifyRequest) Validate(validate *validator.Validate) error {
	r.StudentID = core.CleanString(r.StudentID)
	r.Code = core.CleanString(r.Code)
	return validate.Struct(r)
}

func (r *AdminLoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username)
	return validate.Struct(r)
}

func (r *SubmitRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
