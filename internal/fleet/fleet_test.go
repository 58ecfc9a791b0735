package fleet

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		acct    Account
		wantErr bool
	}{
		{
			name: "valid account",
			acct: Account{ID: "a1", Name: "alpha", UID: "u1", Token: "t1"},
		},
		{
			name: "valid account with optional fields",
			acct: Account{ID: "a1", Name: "alpha", UID: "u1", Token: "t1", BrowserID: "b1", Proxy: "http://127.0.0.1:8000"},
		},
		{
			name:    "missing id",
			acct:    Account{Name: "alpha", UID: "u1", Token: "t1"},
			wantErr: true,
		},
		{
			name:    "missing name",
			acct:    Account{ID: "a1", UID: "u1", Token: "t1"},
			wantErr: true,
		},
		{
			name:    "missing uid",
			acct:    Account{ID: "a1", Name: "alpha", Token: "t1"},
			wantErr: true,
		},
		{
			name:    "missing token",
			acct:    Account{ID: "a1", Name: "alpha", UID: "u1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.acct.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidAccount)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccountClone(t *testing.T) {
	t.Parallel()

	now := time.Now()
	orig := &Account{
		ID:       "a1",
		Name:     "alpha",
		UID:      "u1",
		Token:    "t1",
		Status:   StatusRunning,
		LastPing: &now,
		LastInfo: json.RawMessage(`{"points":42}`),
		ErrCount: 3,
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	// Mutating the clone must not leak back into the original.
	*c.LastPing = now.Add(time.Hour)
	c.LastInfo[0] = 'X'
	c.ErrCount = 0

	assert.Equal(t, now, *orig.LastPing)
	assert.Equal(t, json.RawMessage(`{"points":42}`), orig.LastInfo)
	assert.Equal(t, 3, orig.ErrCount)
}
