// Package group содержит проекции групп и их участников, доступные ядру
// только на чтение. Управление группами находится вне этого сервиса.
package group

import (
	"context"

	"github.com/codeclub/leetboard/internal/domain/shared"
)

// Group - группа участников, для которой строятся лидерборды.
type Group struct {
	ID          shared.GroupID
	Name        string
	MemberCount int
}

// Member - участник группы.
type Member struct {
	ProfileID shared.ProfileID
	Username  shared.Username
}

// Repository - контракт чтения групп.
type Repository interface {
	// ListGroups возвращает все группы вместе с числом участников.
	ListGroups(ctx context.Context) ([]Group, error)

	// GetGroup возвращает группу по ID или shared.ErrGroupNotFound.
	GetGroup(ctx context.Context, id shared.GroupID) (*Group, error)

	// ListMembers возвращает участников группы, отсортированных по
	// username. Для несуществующей группы - shared.ErrGroupNotFound,
	// для группы без участников - пустой список без ошибки.
	ListMembers(ctx context.Context, id shared.GroupID) ([]Member, error)
}
