package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindValidation, "VALIDATION"},
		{KindDataSource, "DATA_SOURCE"},
		{KindSignatureResolution, "SIGNATURE_RESOLUTION"},
		{KindMerge, "MERGE"},
		{KindEnvironment, "ENVIRONMENT"},
		{KindUnknown, "UNKNOWN"},
		{Kind(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestKind_IsRecoverable(t *testing.T) {
	assert.True(t, KindSignatureResolution.IsRecoverable())
	assert.True(t, KindMerge.IsRecoverable())
	assert.False(t, KindValidation.IsRecoverable())
	assert.False(t, KindDataSource.IsRecoverable())
	assert.False(t, KindEnvironment.IsRecoverable())
	assert.False(t, KindUnknown.IsRecoverable())
}

func TestError_Format(t *testing.T) {
	err := New(KindValidation, "validate", "missing required columns: national_id").WithPath("people.xlsx")
	assert.Equal(t, "[VALIDATION] validate people.xlsx: missing required columns: national_id", err.Error())

	wrapped := Wrap(KindDataSource, "load", os.ErrNotExist)
	assert.Equal(t, "[DATA_SOURCE] load: file does not exist", wrapped.Error())

	withMsg := Wrap(KindMerge, "merge", fmt.Errorf("disk full")).WithMessage("write output")
	assert.Equal(t, "[MERGE] merge: write output: disk full", withMsg.Error())

	bare := &Error{Kind: KindEnvironment, Message: "cannot create output directory"}
	assert.Equal(t, "[ENVIRONMENT] cannot create output directory", bare.Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(KindMerge, "merge", nil))
}

func TestError_Chain(t *testing.T) {
	cause := Wrap(KindSignatureResolution, "render", os.ErrPermission)
	outer := fmt.Errorf("pair failed: %w", cause)

	assert.True(t, stderrors.Is(outer, os.ErrPermission))
	assert.Equal(t, KindSignatureResolution, KindOf(outer))
	assert.True(t, IsKind(outer, KindSignatureResolution))
	assert.True(t, IsRecoverable(outer))

	e, ok := As(outer)
	require.True(t, ok)
	assert.Equal(t, "render", e.Op)
	assert.False(t, e.Timestamp.IsZero())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	assert.False(t, IsKind(nil, KindUnknown))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}

func TestNewf(t *testing.T) {
	err := Newf(KindValidation, "validate", "%d rows with missing values", 3)
	assert.Equal(t, "3 rows with missing values", err.Message)
	assert.False(t, err.Recoverable())
}
