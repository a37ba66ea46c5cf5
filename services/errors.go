package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind - класс ошибки, по которому транспорт выбирает код ответа
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindNotFound
	KindNotFoundOrUnauthorized
	KindInvalidArgument
	KindInvalidOperation
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindNotFoundOrUnauthorized:
		return "not_found_or_unauthorized"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error - ошибка сервисного слоя с классом и сообщением для клиента
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthenticated        = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNotFoundOrUnauthorized = &Error{Kind: KindNotFoundOrUnauthorized, Message: "post not found or unauthorized"}
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrInvalidOperation       = &Error{Kind: KindInvalidOperation, Message: "invalid operation"}
	ErrUnavailable            = &Error{Kind: KindUnavailable, Message: "service unavailable"}
	ErrInternal               = &Error{Kind: KindInternal, Message: "internal error"}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of err; errors outside the service taxonomy are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storeError переводит ошибку хранилища в Unavailable или Internal.
// Ошибки, уже принадлежащие сервисному слою, возвращаются как есть.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{Kind: KindInvalidOperation, Message: "already exists", Err: fmt.Errorf("%s: %w", op, err)}
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &Error{Kind: KindNotFound, Message: "referenced record not found", Err: fmt.Errorf("%s: %w", op, err)}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnavailable, Message: "request deadline exceeded", Err: fmt.Errorf("%s: %w", op, err)}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientSQLState(pgErr.Code) {
		return &Error{Kind: KindUnavailable, Message: "storage unavailable", Err: fmt.Errorf("%s: %w", op, err)}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &Error{Kind: KindUnavailable, Message: "storage unavailable", Err: fmt.Errorf("%s: %w", op, err)}
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// transientSQLState: 08 - соединение, 40 - откат транзакции (serialization/deadlock),
// 53 - нехватка ресурсов, 57 - вмешательство оператора
func transientSQLState(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "40", "53", "57":
		return true
	}
	return false
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
