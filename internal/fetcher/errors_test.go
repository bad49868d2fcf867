package fetcher

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchErrorMessage(t *testing.T) {
	t.Parallel()

	withStatus := &FetchError{URL: "https://a.ao/x", StatusCode: 503, Err: errors.New("Service Unavailable")}
	assert.Equal(t, "fetch https://a.ao/x: status 503: Service Unavailable", withStatus.Error())

	transport := &FetchError{URL: "https://a.ao/x", Err: errors.New("connection refused")}
	assert.Equal(t, "fetch https://a.ao/x: connection refused", transport.Error())
}

func TestFetchErrorAs(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	err := fmt.Errorf("listing: %w", &FetchError{URL: "u", StatusCode: 404, Err: cause})

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnrecoverable)
}
