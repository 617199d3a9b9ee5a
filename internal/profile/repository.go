package profile

import "context"

type Repository interface {
	Get(ctx context.Context, subjectID string) (Profile, error)
	Insert(ctx context.Context, p Profile) (Profile, error)
	Update(ctx context.Context, subjectID string, fields Update) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Delete(ctx context.Context, subjectID string) error
}
