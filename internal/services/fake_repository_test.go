package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// fakeRepository is an in-memory Repository. Every method locks on its own, so
// WithTransaction just runs fn against the same store without rollback.
type fakeRepository struct {
	mu sync.Mutex

	tests    map[uint]*models.MockTest
	attempts map[uint]*models.Attempt
	rankings map[uint]*models.Ranking
	users    *fakeUsers

	nextTestID    uint
	nextAttemptID uint
	nextRankingID uint

	// versionConflicts makes the next n versioned updates fail
	versionConflicts int
	// rankingErr fails every ranking write
	rankingErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tests:    make(map[uint]*models.MockTest),
		attempts: make(map[uint]*models.Attempt),
		rankings: make(map[uint]*models.Ranking),
		users:    newFakeUsers(),
	}
}

func (r *fakeRepository) MockTest() repositories.MockTestRepository { return fakeMockTests{r} }
func (r *fakeRepository) Attempt() repositories.AttemptRepository   { return fakeAttempts{r} }
func (r *fakeRepository) Ranking() repositories.RankingRepository   { return fakeRankings{r} }
func (r *fakeRepository) User() repositories.UserRepository         { return r.users }
func (r *fakeRepository) Ping(ctx context.Context) error            { return nil }
func (r *fakeRepository) Close() error                              { return nil }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func copyTest(t *models.MockTest) *models.MockTest {
	c := *t
	c.Questions = append(datatypes.JSONSlice[models.Question](nil), t.Questions...)
	return &c
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	c.Answers = append(datatypes.JSONSlice[models.Answer](nil), a.Answers...)
	return &c
}

func copyRanking(r *models.Ranking) *models.Ranking {
	c := *r
	return &c
}

// stored returns the live attempt; tests use it to inspect state
func (r *fakeRepository) stored(id uint) *models.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[id]; ok {
		return copyAttempt(a)
	}
	return nil
}

func (r *fakeRepository) cohort(mockTestID, subjectID uint) []*models.Ranking {
	list, _ := fakeRankings{r}.ListByCohort(context.Background(), mockTestID, subjectID, false)
	return list
}

// ===== MOCK TESTS =====

type fakeMockTests struct{ r *fakeRepository }

func (f fakeMockTests) Create(ctx context.Context, test *models.MockTest) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.nextTestID++
	test.ID = f.r.nextTestID
	test.CreatedAt = time.Now()
	f.r.tests[test.ID] = copyTest(test)
	return nil
}

func (f fakeMockTests) GetByID(ctx context.Context, id uint) (*models.MockTest, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	t, ok := f.r.tests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyTest(t), nil
}

func (f fakeMockTests) Update(ctx context.Context, test *models.MockTest) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.tests[test.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.r.tests[test.ID] = copyTest(test)
	return nil
}

func (f fakeMockTests) Delete(ctx context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.tests[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.tests, id)
	return nil
}

func (f fakeMockTests) List(ctx context.Context, filters repositories.MockTestFilters) ([]*models.MockTest, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()

	var out []*models.MockTest
	for _, t := range f.r.tests {
		if filters.SubjectID != nil && t.SubjectID != *filters.SubjectID {
			continue
		}
		if filters.CreatedBy != nil && t.CreatedBy != *filters.CreatedBy {
			continue
		}
		out = append(out, copyTest(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	return paginate(out, filters.Offset, filters.Limit), total, nil
}

// ===== ATTEMPTS =====

type fakeAttempts struct{ r *fakeRepository }

func (f fakeAttempts) Create(ctx context.Context, attempt *models.Attempt) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.nextAttemptID++
	attempt.ID = f.r.nextAttemptID
	attempt.CreatedAt = time.Now()
	f.r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (f fakeAttempts) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	a, ok := f.r.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyAttempt(a), nil
}

func (f fakeAttempts) UpdateVersioned(ctx context.Context, attempt *models.Attempt) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()

	if f.r.versionConflicts > 0 {
		f.r.versionConflicts--
		return repositories.ErrVersionConflict
	}

	current, ok := f.r.attempts[attempt.ID]
	if !ok || current.Version != attempt.Version {
		return repositories.ErrVersionConflict
	}

	attempt.Version++
	next := copyAttempt(attempt)
	next.IsBestAttempt = current.IsBestAttempt
	f.r.attempts[attempt.ID] = next
	return nil
}

func (f fakeAttempts) Delete(ctx context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.attempts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.attempts, id)
	return nil
}

func (f fakeAttempts) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()

	var out []*models.Attempt
	for _, a := range f.r.attempts {
		if filters.UserID != nil && a.UserID != *filters.UserID {
			continue
		}
		if filters.MockTestID != nil && a.MockTestID != *filters.MockTestID {
			continue
		}
		if filters.SubjectID != nil && a.SubjectID != *filters.SubjectID {
			continue
		}
		if len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, a.Status) {
			continue
		}
		out = append(out, copyAttempt(a))
	}

	desc := filters.SortOrder == "desc"
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var less, equal bool
		switch filters.SortBy {
		case "attempt_number":
			less, equal = a.AttemptNumber < b.AttemptNumber, a.AttemptNumber == b.AttemptNumber
		case "total_marks":
			less, equal = a.TotalMarks < b.TotalMarks, a.TotalMarks == b.TotalMarks
		case "submitted_at":
			at, bt := timeOrZero(a.SubmittedAt), timeOrZero(b.SubmittedAt)
			less, equal = at.Before(bt), at.Equal(bt)
		default:
			less, equal = a.ID < b.ID, a.ID == b.ID
		}
		if equal {
			return a.ID < b.ID
		}
		if desc {
			return !less
		}
		return less
	})

	total := int64(len(out))
	return paginate(out, filters.Offset, filters.Limit), total, nil
}

func (f fakeAttempts) CountByScope(ctx context.Context, scope models.RankingScope) (int64, error) {
	list, _ := f.ListByScope(ctx, scope)
	return int64(len(list)), nil
}

func (f fakeAttempts) CountByMockTest(ctx context.Context, mockTestID uint) (int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var n int64
	for _, a := range f.r.attempts {
		if a.MockTestID == mockTestID {
			n++
		}
	}
	return n, nil
}

func (f fakeAttempts) ListByScope(ctx context.Context, scope models.RankingScope) ([]*models.Attempt, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Attempt
	for _, a := range f.r.attempts {
		if a.Scope() == scope {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (f fakeAttempts) ListRankingEligible(ctx context.Context, scope models.RankingScope) ([]*models.Attempt, error) {
	all, _ := f.ListByScope(ctx, scope)
	var out []*models.Attempt
	for _, a := range all {
		if a.Status == models.AttemptEvaluated && a.IsWithinTestWindow {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAttempts) SetBestAttempt(ctx context.Context, scope models.RankingScope, bestID uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, a := range f.r.attempts {
		if a.Scope() == scope {
			a.IsBestAttempt = a.ID == bestID
		}
	}
	return nil
}

func (f fakeAttempts) RenumberAfter(ctx context.Context, scope models.RankingScope, attemptNumber int) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, a := range f.r.attempts {
		if a.Scope() == scope && a.AttemptNumber > attemptNumber {
			a.AttemptNumber--
		}
	}
	return nil
}

// ===== RANKINGS =====

type fakeRankings struct{ r *fakeRepository }

func (f fakeRankings) GetByScope(ctx context.Context, scope models.RankingScope) (*models.Ranking, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, rk := range f.r.rankings {
		if rk.UserID == scope.UserID && rk.MockTestID == scope.MockTestID && rk.SubjectID == scope.SubjectID {
			return copyRanking(rk), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeRankings) Upsert(ctx context.Context, ranking *models.Ranking) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.rankingErr != nil {
		return f.r.rankingErr
	}
	for id, rk := range f.r.rankings {
		if rk.UserID == ranking.UserID && rk.MockTestID == ranking.MockTestID && rk.SubjectID == ranking.SubjectID {
			ranking.ID = id
			ranking.Rank = rk.Rank
			f.r.rankings[id] = copyRanking(ranking)
			return nil
		}
	}
	f.r.nextRankingID++
	ranking.ID = f.r.nextRankingID
	f.r.rankings[ranking.ID] = copyRanking(ranking)
	return nil
}

func (f fakeRankings) DeleteByScope(ctx context.Context, scope models.RankingScope) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.rankingErr != nil {
		return f.r.rankingErr
	}
	for id, rk := range f.r.rankings {
		if rk.UserID == scope.UserID && rk.MockTestID == scope.MockTestID && rk.SubjectID == scope.SubjectID {
			delete(f.r.rankings, id)
		}
	}
	return nil
}

func (f fakeRankings) DeleteByBestAttempt(ctx context.Context, attemptID uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for id, rk := range f.r.rankings {
		if rk.BestAttemptID == attemptID {
			delete(f.r.rankings, id)
		}
	}
	return nil
}

func (f fakeRankings) ListByCohort(ctx context.Context, mockTestID, subjectID uint, forUpdate bool) ([]*models.Ranking, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Ranking
	for _, rk := range f.r.rankings {
		if rk.MockTestID == mockTestID && rk.SubjectID == subjectID {
			out = append(out, copyRanking(rk))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BestScore != out[j].BestScore {
			return out[i].BestScore > out[j].BestScore
		}
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.Before(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeRankings) UpdateRanks(ctx context.Context, rankings []*models.Ranking) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, rk := range rankings {
		if stored, ok := f.r.rankings[rk.ID]; ok {
			stored.Rank = rk.Rank
		}
	}
	return nil
}

// ===== USERS =====

type fakeUsers struct {
	mu      sync.Mutex
	users   map[string]*models.User
	listErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*models.User)}
}

func (u *fakeUsers) add(users ...*models.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range users {
		u.users[user.ID] = user
	}
}

func (u *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (u *fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if user, ok := u.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (u *fakeUsers) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.listErr != nil {
		return nil, u.listErr
	}
	var out []*models.User
	for _, user := range u.users {
		if user.Role == role {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *fakeUsers) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []*models.User
	for _, user := range u.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Offset, filters.Limit), int64(len(out)), nil
}

// ===== HELPERS =====

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsStatus(statuses []models.AttemptStatus, s models.AttemptStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// ===== FIXTURES =====

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uint
}

func (n *recordingNotifier) NotifySubmission(ctx context.Context, attempt *models.Attempt, test *models.MockTest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, attempt.ID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type testEnv struct {
	repo       *fakeRepository
	publisher  *events.MockEventPublisher
	notifier   *recordingNotifier
	ranking    *rankingService
	attempts   *attemptService
	evaluation *evaluationService
	queries    QueryService
	mockTests  MockTestService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeRepository()
	logger := discardLogger()
	publisher := events.NewMockEventPublisher(logger)
	locker := cache.NewLocalLocker(time.Second)
	v := validator.New()
	notifier := &recordingNotifier{}

	ranking := NewRankingService(repo, cache.NewCacheManager(nil), locker, publisher, logger).(*rankingService)
	attempts := NewAttemptService(repo, locker, ranking, notifier, publisher, logger, v, AttemptServiceConfig{
		MaxUpdateRetries:      3,
		BulkDeleteConcurrency: 2,
	}).(*attemptService)
	evaluation := NewEvaluationService(repo, ranking, publisher, logger, v, 3).(*evaluationService)

	return &testEnv{
		repo:       repo,
		publisher:  publisher,
		notifier:   notifier,
		ranking:    ranking,
		attempts:   attempts,
		evaluation: evaluation,
		queries:    NewQueryService(repo, logger),
		mockTests:  NewMockTestService(repo, logger, v),
	}
}

// seedTest stores a test whose window is open now
func (e *testEnv) seedTest(t *testing.T, maxAttempts int, questions ...models.Question) *models.MockTest {
	t.Helper()
	now := time.Now()
	test := &models.MockTest{
		Title:       "Algebra mock",
		SubjectID:   7,
		Questions:   questions,
		MaxAttempts: maxAttempts,
		StartDate:   now.Add(-time.Hour),
		EndDate:     now.Add(time.Hour),
	}
	if err := e.repo.MockTest().Create(context.Background(), test); err != nil {
		t.Fatalf("seed test: %v", err)
	}
	return test
}

func mcq(id string, correct int, marks float64, optionMarks ...float64) models.Question {
	q := models.Question{ID: id, Type: models.QuestionMCQ, Prompt: "pick " + id, CorrectAnswer: correct, Marks: marks}
	for i, m := range optionMarks {
		q.Options = append(q.Options, models.Option{Text: string(rune('a' + i)), Marks: m})
	}
	return q
}

func subjective(id string, marks float64) models.Question {
	return models.Question{ID: id, Type: models.QuestionSubjective, Prompt: "explain " + id, Marks: marks}
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }
