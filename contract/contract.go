//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-presence/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// TokenVerifier resolves a bearer credential into the identity bound to a session.
// Implementations are stateless and safe for concurrent use.
type TokenVerifier interface {
	Verify(credential string) (domain.Identity, error)
}

type MessageStore interface {
	Append(ctx context.Context, draft domain.Draft) (domain.StoredMessage, error)
	Query(ctx context.Context, filter domain.Filter) ([]domain.StoredMessage, error)
}

// MembershipAuthority fails closed: a missing group is reported as false, not as an error.
type MembershipAuthority interface {
	GroupExists(ctx context.Context, groupID string) (bool, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

type UserDirectory interface {
	PublicUser(ctx context.Context, userID string) (domain.PublicUser, error)
}
