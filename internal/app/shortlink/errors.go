package shortlink

import (
	"errors"
	"fmt"
)

// 错误分类。具体错误用 fmt.Errorf("%w: ...") 包一层分类，
// 传输层只需要 errors.Is 分类就能映射状态码。
var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrAllocationExhausted = errors.New("short code allocation exhausted")
)

var (
	ErrInvalidURL         = fmt.Errorf("%w: invalid url", ErrValidation)
	ErrInvalidCode        = fmt.Errorf("%w: invalid custom code", ErrValidation)
	ErrCustomCodeTaken    = fmt.Errorf("%w: custom code is already in use", ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: email is already in use", ErrConflict)
	ErrLinkNotFound       = fmt.Errorf("%w: url not found", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrNotOwner           = fmt.Errorf("%w: you do not have permission to modify this url", ErrForbidden)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
)

// CodeConflictError 由存储层返回：插入时某个短码已被占用。
type CodeConflictError struct {
	Code string
}

func (e *CodeConflictError) Error() string {
	return fmt.Sprintf("code %q already reserved", e.Code)
}

func (e *CodeConflictError) Unwrap() error {
	return ErrConflict
}

// EmailConflictError 由存储层返回：邮箱唯一约束冲突。
type EmailConflictError struct {
	Email string
}

func (e *EmailConflictError) Error() string {
	return fmt.Sprintf("email %q already registered", e.Email)
}

func (e *EmailConflictError) Unwrap() error {
	return ErrEmailTaken
}
