package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/conformer/pkg/adapters/memory"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/persistence/middleware"
	"github.com/aretw0/conformer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore records the calls that reach the wrapped store.
type MockStore struct {
	mock.Mock
}

func (s *MockStore) Save(ctx context.Context, report *domain.RunReport) error {
	return s.Called(ctx, report).Error(0)
}

func (s *MockStore) Load(ctx context.Context, id string) (*domain.RunReport, error) {
	args := s.Called(ctx, id)
	report, _ := args.Get(0).(*domain.RunReport)
	return report, args.Error(1)
}

func (s *MockStore) Delete(ctx context.Context, id string) error {
	return s.Called(ctx, id).Error(0)
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	args := s.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

var paths = map[string]string{
	"/home/ci/src":       "$SOURCE",
	"/home/ci/src/build": "$BUILD",
	"":                   "$EMPTY",
}

func TestPathRedactMiddleware_Contract(t *testing.T) {
	ports.RunReportStoreContract(t, middleware.NewPathRedactMiddleware(paths)(memory.NewStore()))
}

func TestPathRedactMiddleware_Save(t *testing.T) {
	next := &MockStore{}
	store := middleware.NewPathRedactMiddleware(paths)(next)
	ctx := context.Background()

	report := &domain.RunReport{
		ID: "run-1",
		Methods: []domain.MethodResult{
			{Method: "pipe", Status: domain.StatusFailed, Error: "dial unix /home/ci/src/build/debugger.sock: connection refused"},
			{Method: "tcp", Status: domain.StatusFailed, Error: "open /home/ci/src/buildsystem1/CMakeLists.txt"},
			{Method: "stdio", Status: domain.StatusPassed},
		},
	}

	next.On("Save", ctx, mock.MatchedBy(func(r *domain.RunReport) bool {
		return r.ID == "run-1" &&
			r.Methods[0].Error == "dial unix $BUILD/debugger.sock: connection refused" &&
			r.Methods[1].Error == "open $SOURCE/buildsystem1/CMakeLists.txt" &&
			r.Methods[2].Error == ""
	})).Return(nil).Once()

	require.NoError(t, store.Save(ctx, report))
	next.AssertExpectations(t)

	assert.Contains(t, report.Methods[0].Error, "/home/ci/src/build", "the caller's report is untouched")
}

func TestPathRedactMiddleware_Delegates(t *testing.T) {
	next := &MockStore{}
	store := middleware.NewPathRedactMiddleware(paths)(next)
	ctx := context.Background()

	next.On("Load", ctx, "run-1").Return(&domain.RunReport{ID: "run-1"}, nil).Once()
	next.On("Delete", ctx, "run-1").Return(nil).Once()
	next.On("List", ctx).Return([]string{"run-1"}, nil).Once()

	got, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	require.NoError(t, store.Delete(ctx, "run-1"))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)

	next.AssertExpectations(t)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.ReportStore) ports.ReportStore {
			order = append(order, name)
			return next
		}
	}
	middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order, "inner wraps the store first")
}

func TestPathRedactMiddleware_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		paths map[string]string
		in    string
		want  string
	}{
		{"Nested Under Another Dir", paths, "open /y/home/ci/src/x", "open /y/home/ci/src/x"},
		{"Quoted", paths, `open "/home/ci/src/x"`, `open "$SOURCE/x"`},
		{"Repeated", paths, "/home/ci/src:/home/ci/src", "$SOURCE:$SOURCE"},
		{"Relative Dir", map[string]string{"src": "$SOURCE"}, "cd src/a; cd /y/src/b; cd mysrc", "cd $SOURCE/a; cd /y/src/b; cd mysrc"},
		{"Dot Is Ignored", map[string]string{".": "$SOURCE"}, "open ./a.txt. done", "open ./a.txt. done"},
		{"Root Is Ignored", map[string]string{"/": "$ROOT"}, "open /a", "open /a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := middleware.NewPathRedactMiddleware(tt.paths)(memory.NewStore())
			require.NoError(t, store.Save(ctx, &domain.RunReport{
				ID:      "run-1",
				Methods: []domain.MethodResult{{Method: "tcp", Status: domain.StatusFailed, Error: tt.in}},
			}))

			got, err := store.Load(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Methods[0].Error)
		})
	}
}
