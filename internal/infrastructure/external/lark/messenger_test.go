package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessages struct {
	requests []*larkim.CreateMessageReq
	resp     *larkim.CreateMessageResp
	err      error
}

func (f *fakeMessages) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func okResponse() *larkim.CreateMessageResp {
	return &larkim.CreateMessageResp{
		Data: &larkim.CreateMessageRespData{MessageId: larkcore.StringPtr("om_1")},
	}
}

func TestMessenger_SendText(t *testing.T) {
	fake := &fakeMessages{resp: okResponse()}
	m := &Messenger{messages: fake, logger: zap.NewNop()}

	err := m.SendText(context.Background(), "ou_123", `Requisition "r-1" needs you`)
	require.NoError(t, err)
	require.Len(t, fake.requests, 1)

	body := fake.requests[0].Body
	require.NotNil(t, body)
	assert.Equal(t, "ou_123", *body.ReceiveId)
	assert.Equal(t, "text", *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, `Requisition "r-1" needs you`, content["text"])
}

func TestMessenger_SendText_Failures(t *testing.T) {
	t.Run("empty recipient", func(t *testing.T) {
		fake := &fakeMessages{resp: okResponse()}
		m := &Messenger{messages: fake, logger: zap.NewNop()}
		assert.Error(t, m.SendText(context.Background(), "", "hi"))
		assert.Empty(t, fake.requests)
	})

	t.Run("transport error", func(t *testing.T) {
		m := &Messenger{messages: &fakeMessages{err: errors.New("timeout")}, logger: zap.NewNop()}
		assert.Error(t, m.SendText(context.Background(), "ou_1", "hi"))
	})

	t.Run("api error code", func(t *testing.T) {
		resp := &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230001, Msg: "invalid receive_id"}}
		m := &Messenger{messages: &fakeMessages{resp: resp}, logger: zap.NewNop()}
		err := m.SendText(context.Background(), "ou_1", "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "230001")
	})
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{AppID: "cli_x"}.Enabled())
	assert.True(t, Config{AppID: "cli_x", AppSecret: "s"}.Enabled())
}
