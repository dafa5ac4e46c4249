package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
)

func Get(
	ctx context.Context,
	raw json.RawMessage,
	m *Manager,
) (any, *errors.RpcError) {
	var params a2a.TaskQueryParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.ErrInvalidParams
	}

	task, rpcErr := m.GetTask(ctx, params.ID, params.HistoryLength)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}
