package upstream

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduflow-api/pkg/errors"
)

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// 499 字节 ASCII 后接 2 字节字符，第 500 字节落在字符中间
	s := strings.Repeat("a", maxDetailLen-1) + strings.Repeat("é", 10)

	out := truncate(s)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("a", maxDetailLen-1)+"...", out)
	assert.Equal(t, "short", truncate("short"))
}

func TestStatusErrorMessageIsValidUTF8(t *testing.T) {
	// 奇数偏移使第 500 字节落在字符中间
	body := []byte("a" + strings.Repeat("ç", 400))

	err := translateStatus("generation service", &Response{StatusCode: http.StatusBadGateway, Body: body})

	app := apperrors.AsAppError(err)
	require.NotNil(t, app)
	assert.Equal(t, apperrors.CodeUpstreamError, app.Code)
	assert.True(t, utf8.ValidString(app.Message))
	assert.True(t, strings.HasSuffix(app.Message, "..."))

	err = translateStatus("generation service", &Response{StatusCode: http.StatusBadRequest, Body: body})
	assert.True(t, utf8.ValidString(apperrors.AsAppError(err).Detail))
}
