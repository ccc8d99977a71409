// Package apperrors 定義整個聊天核心共用的錯誤分類。
//
// 各服務以 fmt.Errorf("...: %w", ErrXxx) 包裝錯誤，
// handlers 只透過 HTTPStatus 將分類對應到 HTTP 狀態碼，不自行判斷錯誤內容。
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrConflict        = fmt.Errorf("conflict")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInternal        = fmt.Errorf("internal error")
)

// HTTPStatus 將錯誤分類對應到 HTTP 狀態碼，未分類的錯誤一律視為 500
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
