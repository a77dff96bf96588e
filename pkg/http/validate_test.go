package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterReq struct {
	Mode  string `json:"mode" default:"all" validate:"oneof=all any exact"`
	Value string `json:"value" validate:"required_if=Mode exact,max=8"`
}

func bind(t *testing.T, body string) (*filterReq, interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &filterReq{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	req, verr := bind(t, `{}`)
	require.Nil(t, verr)
	assert.Equal(t, "all", req.Mode)
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	_, verr := bind(t, `{"mode":"exact"}`)
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_REQUIRED_IF", errs[0].Code)
	assert.Equal(t, "value", errs[0].Field)
	assert.Equal(t, "value is required when Mode is exact", errs[0].Message)

	_, verr = bind(t, `{"mode":"some"}`)
	errs = verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "mode must be one of: all, any, exact", errs[0].Message)
	assert.Equal(t, []string{"all", "any", "exact"}, errs[0].Params["options"])

	_, verr = bind(t, `{"mode":"exact","value":"much too long"}`)
	errs = verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "value must be at most 8 characters", errs[0].Message)

	_, verr = bind(t, `{"mode":`)
	errs = verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}
