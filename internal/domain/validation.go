package domain

import (
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail   = NewError(ErrValidation, "invalid_email", "invalid email format")
	ErrEmailTooLong   = NewError(ErrValidation, "invalid_email", "email address too long")
	ErrNameTooLong    = NewError(ErrValidation, "invalid_name", "name too long (max 255 chars)")
	ErrSubjectTooLong = NewError(ErrValidation, "invalid_subject", "subject too long (max 500 chars)")
)

// 验证常量
const (
	// RFC 5322 邮箱地址长度限制
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度

	MaxNameLength    = 255
	MaxSubjectLength = 500
)

// 域名验证（支持子域名，至少包含一个点）
var domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// EmailValidator 邮箱验证器
type EmailValidator struct{}

// NewEmailValidator 创建邮箱验证器
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// NormalizeEmail 去除首尾空白并转为小写，唯一性比较基于该结果
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail 验证已规范化的邮箱地址
func (v *EmailValidator) ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	// 使用标准库进行基础格式验证，并拒绝 "Name <addr>" 形式
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	localPart, domainPart := email[:at], email[at+1:]
	if localPart == "" || len(localPart) > MaxLocalPartLength {
		return ErrInvalidEmail
	}
	if len(domainPart) > MaxDomainLength || !domainRegex.MatchString(domainPart) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateName 验证用户显示名称（调用前已去除空白）
func ValidateName(name string) error {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateSubject 验证可选主题长度
func ValidateSubject(subject *string) error {
	if subject != nil && len(*subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	return nil
}
