package common

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHttpErrorDefaults(t *testing.T) {
	e := HTTPErrorNotFound("")
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, "Not found", e.Message)

	e = HTTPErrorServiceUnavailable("graph not loaded")
	assert.Equal(t, http.StatusServiceUnavailable, e.StatusCode)
	assert.Equal(t, "graph not loaded", e.Message)
	assert.Contains(t, e.Error(), "SERVICE_UNAVAILABLE")
}
