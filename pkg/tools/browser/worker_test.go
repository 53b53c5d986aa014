package browser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, input string) ([]Response, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{}
	var out bytes.Buffer
	require.NoError(t, ServeWorker(context.Background(), strings.NewReader(input), &out, b))

	var responses []Response
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses, b
}

func TestServeWorker(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1,"op":"open_url","args":["s1","https://www.xiaohongshu.com"],"kwargs":{"wait_ms":10}}`,
		``,
		`{"id":2,"op":"fly"}`,
		`{"id":3,"op":"click_by_text","args":["s1"],"kwargs":{"text_substring":"panic"}}`,
		`{"id":4,"op":"open_url","args":["a","b",1,"extra"]}`,
		`not json`,
		`{"id":5,"op":"get_text","kwargs":{"session_id":"s1"}}`,
		`{"id":6,"op":"ping"}`,
		`null`,
		`{"id":7,"op":"ping"}`,
	}, "\n")

	responses, b := serve(t, input)
	require.Len(t, responses, 7)

	open := responses[0]
	assert.Equal(t, uint64(1), open.ID)
	require.True(t, open.OK)
	assert.Equal(t, "s1", open.Value["session_id"])
	assert.Equal(t, "https://www.xiaohongshu.com", open.Value["url"])
	assert.Equal(t, float64(10), open.Value["wait_ms"])

	assert.False(t, responses[1].OK)
	assert.Equal(t, "UnknownOp", responses[1].Error.Kind)

	assert.Equal(t, uint64(3), responses[2].ID)
	assert.Equal(t, "Panic", responses[2].Error.Kind)
	assert.Contains(t, responses[2].Error.Message, "element detached")

	assert.Equal(t, "TypeError", responses[3].Error.Kind)
	assert.Contains(t, responses[3].Error.Message, "positional")

	assert.Equal(t, uint64(0), responses[4].ID)
	assert.Equal(t, "ProtocolError", responses[4].Error.Kind)

	assert.Equal(t, "errors.errorString", responses[5].Error.Kind)
	assert.Equal(t, "target closed", responses[5].Error.Message)

	assert.True(t, responses[6].OK)
	assert.Equal(t, true, responses[6].Value["pong"])

	assert.Equal(t, 1, b.shutdownCount())
}

func TestServeWorker_EOFShutsDown(t *testing.T) {
	responses, b := serve(t, `{"id":1,"op":"start_session","args":[true]}`)
	require.Len(t, responses, 1)
	assert.Equal(t, true, responses[0].Value["headless"])
	assert.Equal(t, 1, b.shutdownCount())
}

func TestRequestDecode(t *testing.T) {
	req, err := NewRequest(9, OpFillByPlaceholder, PlaceholderParams{SessionID: "s", Placeholder: "手机号", Text: "13800000000"})
	require.NoError(t, err)
	assert.Empty(t, req.Args)
	assert.Len(t, req.Kwargs, 3)

	var p PlaceholderParams
	require.NoError(t, req.Decode(&p))
	assert.Equal(t, "手机号", p.Placeholder)

	req = &Request{Op: OpGetPageSource, Args: []json.RawMessage{json.RawMessage(`"s"`), json.RawMessage(`500`)},
		Kwargs: map[string]json.RawMessage{"max_chars": json.RawMessage(`900`)}}
	var src PageSourceParams
	require.NoError(t, req.Decode(&src))
	assert.Equal(t, "s", src.SessionID)
	assert.Equal(t, 900, src.MaxChars)

	assert.Error(t, (&Request{Op: "nope"}).Decode(&src))
}
