package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
)

// SendSubscribe decodes tasks/sendSubscribe params and hands the sink to
// the streaming execution path.  Every path closes the sink exactly once:
// the decode failure here, everything else inside StreamTask.
func SendSubscribe(
	ctx context.Context,
	raw json.RawMessage,
	m *Manager,
	sink a2a.EventSink,
) {
	var params a2a.TaskSendParams

	if err := json.Unmarshal(raw, &params); err != nil {
		rpcErr := errors.ErrInvalidParams
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		_ = sink.Close()
		return
	}

	m.StreamTask(ctx, params, sink)
}
