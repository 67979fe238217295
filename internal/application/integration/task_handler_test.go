package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/storesync/internal/domain/integration"
)

func TestTaskHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("sync product", func(t *testing.T) {
		env := newTestEnv(t, enabledSettings())
		h := NewTaskHandler(env.sync, newMaintenance(t, env), zaptest.NewLogger(t))
		env.catalog.On("FindByCode", mock.Anything, "SKU-1").Return(testItem("SKU-1"), nil)
		env.client.On("CreateProduct", mock.Anything, mock.Anything, mock.Anything).Return(integration.Succeeded(201, "R1", nil))

		err := h.HandleTask(ctx, integration.NewSyncTask(integration.TaskSyncProduct, "SKU-1", integration.TriggerAuto))
		require.NoError(t, err)
		assert.Equal(t, "R1", env.mapping(t, integration.EntityKindProduct, "SKU-1").RemoteID)
	})

	t.Run("remote failure is not a task failure", func(t *testing.T) {
		env := newTestEnv(t, enabledSettings())
		h := NewTaskHandler(env.sync, newMaintenance(t, env), zaptest.NewLogger(t))
		env.catalog.On("FindByCode", mock.Anything, "SKU-2").Return(testItem("SKU-2"), nil)
		env.client.On("CreateProduct", mock.Anything, mock.Anything, mock.Anything).
			Return(integration.Failed(integration.FailureHTTP, 400, "bad request", nil))

		err := h.HandleTask(ctx, integration.NewSyncTask(integration.TaskSyncProduct, "SKU-2", integration.TriggerAuto))
		assert.NoError(t, err)
	})

	t.Run("missing entity is dropped", func(t *testing.T) {
		env := newTestEnv(t, enabledSettings())
		h := NewTaskHandler(env.sync, newMaintenance(t, env), zaptest.NewLogger(t))
		env.catalog.On("FindByCode", mock.Anything, "GONE").Return(nil, integration.ErrLocalEntityNotFound)

		err := h.HandleTask(ctx, integration.NewSyncTask(integration.TaskSyncProduct, "GONE", integration.TriggerAuto))
		assert.NoError(t, err)
	})

	t.Run("infrastructure error is returned", func(t *testing.T) {
		env := newTestEnv(t, enabledSettings())
		h := NewTaskHandler(env.sync, newMaintenance(t, env), zaptest.NewLogger(t))
		env.catalog.On("FindUnsynced", mock.Anything, 20).Return(nil, errors.New("db down"))

		task := integration.NewSyncTask(integration.TaskSyncPending, "", integration.TriggerScheduled)
		task.Limit = 20
		assert.Error(t, h.HandleTask(ctx, task))
	})

	t.Run("bulk task", func(t *testing.T) {
		env := newTestEnv(t, enabledSettings())
		h := NewTaskHandler(env.sync, newMaintenance(t, env), zaptest.NewLogger(t))
		env.catalog.On("FindByCode", mock.Anything, mock.Anything).Return(testItem("X"), nil)
		env.client.On("CreateProduct", mock.Anything, mock.Anything, mock.Anything).Return(integration.Succeeded(201, "RX", nil))

		task := integration.NewSyncTask(integration.TaskBulkSync, "", integration.TriggerBulk)
		task.LocalIDs = []string{"X1", "X2"}
		require.NoError(t, h.HandleTask(ctx, task))
		assert.Equal(t, 2, env.mappingRepo.len())
	})

	t.Run("unknown type", func(t *testing.T) {
		env := newTestEnv(t, enabledSettings())
		h := NewTaskHandler(env.sync, newMaintenance(t, env), zaptest.NewLogger(t))

		err := h.HandleTask(ctx, integration.NewSyncTask("NOPE", "", integration.TriggerAuto))
		assert.ErrorIs(t, err, ErrUnknownTaskType)
	})
}
