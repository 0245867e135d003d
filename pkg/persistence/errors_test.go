package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lodecms/lode/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("store error contains context", func(t *testing.T) {
		err := persistence.NewStoreError("flows.GetByID", "flow-123", persistence.ErrFlowNotFound)

		assert.Contains(t, err.Error(), "flows.GetByID")
		assert.Contains(t, err.Error(), "flow-123")
		assert.Contains(t, err.Error(), "flow not found")
		assert.True(t, errors.Is(err, persistence.ErrFlowNotFound))
	})

	t.Run("store error without subject", func(t *testing.T) {
		err := persistence.NewStoreError("runs.Create", "", persistence.ErrUniqueViolation)

		assert.Contains(t, err.Error(), "runs.Create")
		assert.True(t, persistence.IsUniqueViolation(err))
	})

	t.Run("error checking functions", func(t *testing.T) {
		tests := []struct {
			name  string
			err   error
			check func(error) bool
			want  bool
		}{
			{"flow not found direct", persistence.ErrFlowNotFound, persistence.IsFlowNotFound, true},
			{"flow not found wrapped", fmt.Errorf("lookup: %w", persistence.ErrFlowNotFound), persistence.IsFlowNotFound, true},
			{"slug exists", persistence.ErrFlowSlugExists, persistence.IsFlowSlugExists, true},
			{"slug exists counts as unique violation", persistence.ErrFlowSlugExists, persistence.IsUniqueViolation, true},
			{"content type not found", persistence.ErrContentTypeNotFound, persistence.IsContentTypeNotFound, true},
			{"unrelated error", errors.New("boom"), persistence.IsFlowNotFound, false},
			{"nil error", nil, persistence.IsFlowNotFound, false},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.want, tt.check(tt.err), tt.name)
		}
	})
}
