package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestFormatsMessage(t *testing.T) {
	err := Request("unknown option %q for criterion %q", "Fair", "Clarity")
	require.Equal(t, `unknown option "Fair" for criterion "Clarity"`, err.Error())
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed to store rubric", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "failed to store rubric: connection refused", err.Error())
}

func TestKindsAreDistinguishable(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", Workflow("no submissions available"))

	var workflowErr *WorkflowError
	require.True(t, errors.As(wrapped, &workflowErr))

	var requestErr *RequestError
	require.False(t, errors.As(wrapped, &requestErr))
}
