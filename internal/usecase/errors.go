package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
)

// クライアント向けのエラーコード
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeReconciliation     = "RECONCILIATION_ERROR"
	CodeShopIDRequired     = "SHOP_ID_REQUIRED"
	CodeInvalidState       = "INVALID_STATE"
	CodeLockTimeout        = "LOCK_TIMEOUT"
	CodeTransactionAborted = "TRANSACTION_ABORTED"
	CodePersistence        = "PERSISTENCE_ERROR"
)

type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// 呼び出し側がそのまま再試行してよいエラーか
func (e *HTTPError) Retryable() bool {
	return e.Code == CodeLockTimeout || e.Code == CodeTransactionAborted
}

// コードはステータスから決める
func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    codeForStatus(status),
		Message: message,
	}
}

func NewCodedError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeInvalidState
	case http.StatusServiceUnavailable:
		return CodeLockTimeout
	default:
		return CodePersistence
	}
}

// リポジトリ・ドメインのエラーをHTTPErrorへ変換する
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		return NewCodedError(http.StatusBadRequest, CodeInsufficientStock, "insufficient stock")
	case errors.Is(err, model.ErrUnreconciled):
		return NewCodedError(http.StatusBadRequest, CodeReconciliation, "available + reserved exceeds stock")
	case errors.Is(err, repo.ErrShopIDRequired):
		return NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	case errors.Is(err, repo.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return NewCodedError(http.StatusServiceUnavailable, CodeLockTimeout, "lock timeout, retry later")
	case errors.Is(err, repo.ErrTxAborted):
		return NewCodedError(http.StatusConflict, CodeTransactionAborted, "transaction aborted, retry")
	case errors.Is(err, repo.ErrNotFound):
		return NewCodedError(http.StatusNotFound, CodeNotFound, "not found")
	default:
		return NewCodedError(http.StatusInternalServerError, CodePersistence, "db error")
	}
}
