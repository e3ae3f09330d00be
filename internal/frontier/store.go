// Package frontier is the persistent work queue of the crawler: repositories
// discovered but not fetched (new_repos) and fetched repositories whose
// neighbors are not explored yet (repos_todo).
//
// An (owner, name) pair is either discovered or fetched, never both. Every
// mutating method runs in its own transaction, or as a savepoint when the store
// is already bound to one through Transaction.
package frontier

import (
	"context"
	"errors"
	"fmt"

	"github.com/thep200/github-frontier/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type State int

const (
	StateAbsent State = iota
	StateDiscovered
	StateFetched
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateFetched:
		return "fetched"
	default:
		return "absent"
	}
}

var (
	ErrNotDiscovered = errors.New("frontier: record is not in the discovered set")
	ErrNoTodo        = errors.New("frontier: expansion todo does not exist")
	ErrOwnerKind     = errors.New("frontier: invalid owner kind")
)

// LanguageSize is one (label, weight) association of a fetched repository.
type LanguageSize struct {
	Name  string
	Color string
	Bytes int64
}

// Attributes are the details a fetch brings back for one repository.
type Attributes struct {
	Description string
	DiskUsage   int64
	Url         string
	IsFork      bool
	IsMirror    bool
	Languages   []LanguageSize
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a store bound to one database transaction. The
// transaction commits only if fn returns nil.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{db: gtx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) HasPendingExpansion(ctx context.Context) (bool, error) {
	return s.exists(ctx, &model.RepoTodo{})
}

func (s *Store) HasPendingFetch(ctx context.Context) (bool, error) {
	return s.exists(ctx, &model.NewRepo{})
}

func (s *Store) exists(ctx context.Context, m interface{}) (bool, error) {
	var found int64
	if err := s.conn(ctx).Model(m).Count(&found).Error; err != nil {
		return false, fmt.Errorf("frontier: probe %T: %w", m, err)
	}
	return found > 0, nil
}

// NextExpansionTarget returns the oldest open todo with its repository and
// owner loaded, or nil when the expansion queue is empty.
func (s *Store) NextExpansionTarget(ctx context.Context) (*model.RepoTodo, error) {
	var todo model.RepoTodo
	err := s.conn(ctx).Preload("Repo.Owner").Order("id asc").First(&todo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("frontier: next expansion target: %w", err)
	}
	return &todo, nil
}

// NextFetchBatch returns up to maxN discovered records, oldest first.
func (s *Store) NextFetchBatch(ctx context.Context, maxN int) ([]model.NewRepo, error) {
	if maxN <= 0 {
		return nil, nil
	}
	var batch []model.NewRepo
	if err := s.conn(ctx).Preload("Owner.OwnerType").Order("id asc").Limit(maxN).Find(&batch).Error; err != nil {
		return nil, fmt.Errorf("frontier: next fetch batch: %w", err)
	}
	return batch, nil
}

func (s *Store) OwnerExists(ctx context.Context, login string) (bool, error) {
	_, err := s.findOwner(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) findOwner(ctx context.Context, login string) (*model.Owner, error) {
	var owner model.Owner
	// GitHub login và tên repo không phân biệt hoa thường
	if err := s.conn(ctx).Where("LOWER(login) = LOWER(?)", login).Order("id asc").First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("frontier: find owner %s: %w", login, err)
	}
	return &owner, nil
}

func (s *Store) EntityState(ctx context.Context, ownerLogin, name string) (State, error) {
	owner, err := s.findOwner(ctx, ownerLogin)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StateAbsent, nil
	}
	if err != nil {
		return StateAbsent, err
	}
	return s.stateOf(ctx, owner.ID, name)
}

func (s *Store) stateOf(ctx context.Context, ownerID uint, name string) (State, error) {
	var count int64
	if err := s.conn(ctx).Model(&model.Repo{}).Where("owner_id = ? AND LOWER(name) = LOWER(?)", ownerID, name).Count(&count).Error; err != nil {
		return StateAbsent, fmt.Errorf("frontier: repo state: %w", err)
	}
	if count > 0 {
		return StateFetched, nil
	}
	if err := s.conn(ctx).Model(&model.NewRepo{}).Where("owner_id = ? AND LOWER(name) = LOWER(?)", ownerID, name).Count(&count).Error; err != nil {
		return StateAbsent, fmt.Errorf("frontier: discovered state: %w", err)
	}
	if count > 0 {
		return StateDiscovered, nil
	}
	return StateAbsent, nil
}

// RecordDiscovered adds (owner, name) to the discovered set and reports whether
// a row was inserted. It is a no-op when the pair is already discovered or
// fetched. The owner is created on first reference and never updated.
func (s *Store) RecordDiscovered(ctx context.Context, ownerLogin, ownerKind, name string) (bool, error) {
	if !model.ValidOwnerKind(ownerKind) {
		return false, fmt.Errorf("%w: %q", ErrOwnerKind, ownerKind)
	}
	if ownerLogin == "" || name == "" {
		return false, fmt.Errorf("frontier: empty identity %q/%q", ownerLogin, name)
	}
	name = model.TruncateString(name, 250)

	inserted := false
	err := s.Transaction(ctx, func(tx *Store) error {
		owner, err := tx.ensureOwner(ctx, ownerLogin, ownerKind)
		if err != nil {
			return err
		}

		state, err := tx.stateOf(ctx, owner.ID, name)
		if err != nil {
			return err
		}
		if state != StateAbsent {
			return nil
		}

		rec := &model.NewRepo{OwnerID: owner.ID, Name: name}
		res := tx.conn(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return fmt.Errorf("frontier: insert discovered %s/%s: %w", ownerLogin, name, res.Error)
		}
		inserted = res.RowsAffected > 0
		return nil
	})
	return inserted, err
}

func (s *Store) ensureOwner(ctx context.Context, login, kind string) (*model.Owner, error) {
	ownerType := model.OwnerType{}
	if err := s.conn(ctx).Where(model.OwnerType{Typename: kind}).FirstOrCreate(&ownerType).Error; err != nil {
		return nil, fmt.Errorf("frontier: owner type %s: %w", kind, err)
	}

	login = model.TruncateString(login, 250)
	existing, err := s.findOwner(ctx, login)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	owner := &model.Owner{Login: login, TypeID: ownerType.ID}
	if err := s.conn(ctx).Omit(clause.Associations).Create(owner).Error; err != nil {
		return nil, fmt.Errorf("frontier: owner %s: %w", login, err)
	}
	return owner, nil
}

// PromoteToFetched inserts the fetched repository with its languages, removes
// the discovered record and opens an expansion todo, all or nothing.
func (s *Store) PromoteToFetched(ctx context.Context, rec model.NewRepo, attrs Attributes) (*model.Repo, error) {
	var repo *model.Repo
	err := s.Transaction(ctx, func(tx *Store) error {
		res := tx.conn(ctx).Where("id = ?", rec.ID).Delete(&model.NewRepo{})
		if res.Error != nil {
			return fmt.Errorf("frontier: delete discovered %d: %w", rec.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id=%d %s", ErrNotDiscovered, rec.ID, rec.Name)
		}

		repo = &model.Repo{
			OwnerID:     rec.OwnerID,
			Name:        rec.Name,
			Description: attrs.Description,
			DiskUsage:   attrs.DiskUsage,
			Url:         model.TruncateString(attrs.Url, 500),
			IsFork:      attrs.IsFork,
			IsMirror:    attrs.IsMirror,
		}
		if err := tx.conn(ctx).Omit(clause.Associations).Create(repo).Error; err != nil {
			return fmt.Errorf("frontier: insert repo %s: %w", rec.Name, err)
		}

		for _, ls := range attrs.Languages {
			if err := tx.addLanguage(ctx, repo.ID, ls); err != nil {
				return err
			}
		}

		todo := &model.RepoTodo{RepoID: repo.ID}
		if err := tx.conn(ctx).Omit(clause.Associations).Create(todo).Error; err != nil {
			return fmt.Errorf("frontier: open todo for repo %d: %w", repo.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *Store) addLanguage(ctx context.Context, repoID uint, ls LanguageSize) error {
	if ls.Name == "" {
		return nil
	}
	lang := model.Language{}
	err := s.conn(ctx).
		Where(model.Language{Name: model.TruncateString(ls.Name, 120)}).
		Attrs(model.Language{Color: ls.Color}).
		FirstOrCreate(&lang).Error
	if err != nil {
		return fmt.Errorf("frontier: language %s: %w", ls.Name, err)
	}

	rl := &model.RepoLanguage{RepoID: repoID, LangID: lang.ID, BytesUsed: ls.Bytes}
	err = s.conn(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_id"}, {Name: "lang_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bytes_used"}),
	}).Create(rl).Error
	if err != nil {
		return fmt.Errorf("frontier: repo language %d/%s: %w", repoID, ls.Name, err)
	}
	return nil
}

// RetireExpansion deletes the todo only.
func (s *Store) RetireExpansion(ctx context.Context, todo *model.RepoTodo) error {
	res := s.conn(ctx).Where("id = ?", todo.ID).Delete(&model.RepoTodo{})
	if res.Error != nil {
		return fmt.Errorf("frontier: retire todo %d: %w", todo.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id=%d", ErrNoTodo, todo.ID)
	}
	return nil
}

// MarkPermanentlyFailed removes the todo and records the repository in
// repo_errors. The repository row and its languages are kept.
func (s *Store) MarkPermanentlyFailed(ctx context.Context, todo *model.RepoTodo, reason string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.RetireExpansion(ctx, todo); err != nil {
			return err
		}
		rec := &model.RepoError{RepoID: todo.RepoID, ErrorText: reason}
		if err := tx.conn(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(rec).Error; err != nil {
			return fmt.Errorf("frontier: record repo error %d: %w", todo.RepoID, err)
		}
		return nil
	})
}

// DropDiscovered removes a discovered record the provider never answers for
// and keeps a trace of it in fetch_errors.
func (s *Store) DropDiscovered(ctx context.Context, rec model.NewRepo, reason string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		res := tx.conn(ctx).Where("id = ?", rec.ID).Delete(&model.NewRepo{})
		if res.Error != nil {
			return fmt.Errorf("frontier: drop discovered %d: %w", rec.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id=%d", ErrNotDiscovered, rec.ID)
		}
		fe := &model.FetchError{OwnerLogin: rec.Owner.Login, Name: rec.Name, ErrorText: reason}
		if err := tx.conn(ctx).Create(fe).Error; err != nil {
			return fmt.Errorf("frontier: record fetch error: %w", err)
		}
		return nil
	})
}

// RecordCost appends a calibration sample.
func (s *Store) RecordCost(ctx context.Context, sample model.QueryCost) error {
	sample.ID = 0
	if err := s.conn(ctx).Create(&sample).Error; err != nil {
		return fmt.Errorf("frontier: record cost: %w", err)
	}
	return nil
}

func (s *Store) CostSamples(ctx context.Context) ([]model.QueryCost, error) {
	var samples []model.QueryCost
	if err := s.conn(ctx).Order("id asc").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("frontier: cost samples: %w", err)
	}
	return samples, nil
}
