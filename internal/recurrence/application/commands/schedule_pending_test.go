package commands

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, p domain.RuleParams) *domain.RecurrenceRule {
	t.Helper()
	rule, err := domain.NewRecurrenceRule(p)
	require.NoError(t, err)
	return rule
}

func completedRecurringTask(t *testing.T, rule *domain.RecurrenceRule, due time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(uuid.New(), "Water plants", due)
	require.NoError(t, err)
	task.SetRecurrenceRule(rule)
	require.NoError(t, task.Complete(due.Add(2*time.Hour)))
	task.ClearDomainEvents()
	return task
}

func TestSchedulePendingHandler_Handle(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, "tx", "transaction")
	due := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	t.Run("schedules a ticket for the next occurrence", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		task := completedRecurringTask(t, mustRule(t, domain.RuleParams{
			Frequency: domain.FrequencyDaily,
			TimeZone:  "UTC",
		}), due)

		var saved *domain.PendingRecurrence
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(nil, nil)
		pendingRepo.On("Save", txCtx, mock.AnythingOfType("*domain.PendingRecurrence")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*domain.PendingRecurrence)
			}).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID(), UserID: task.UserID()})

		require.NoError(t, err)
		require.NotNil(t, result)
		require.NotNil(t, saved)
		assert.Equal(t, saved.ID(), result.PendingID)
		assert.Equal(t, 2, result.OccurrenceIndex)
		assert.True(t, saved.ScheduledDate().Equal(due.AddDate(0, 0, 1)))
		taskRepo.AssertExpectations(t)
		pendingRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		uow.AssertExpectations(t)
	})

	t.Run("anchors on completion when the rule repeats from completion date", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		task := completedRecurringTask(t, mustRule(t, domain.RuleParams{
			Frequency:  domain.FrequencyDaily,
			Interval:   3,
			RepeatMode: domain.RepeatFromCompletionDate,
			TimeZone:   "UTC",
		}), due)

		var saved *domain.PendingRecurrence
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(nil, nil)
		pendingRepo.On("Save", txCtx, mock.AnythingOfType("*domain.PendingRecurrence")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*domain.PendingRecurrence)
			}).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		_, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID(), UserID: task.UserID()})

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.True(t, saved.ScheduledDate().Equal(task.CompletedAt().AddDate(0, 0, 3)))
	})

	t.Run("returns the existing ticket instead of duplicating", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		task := completedRecurringTask(t, mustRule(t, domain.RuleParams{
			Frequency: domain.FrequencyDaily,
			TimeZone:  "UTC",
		}), due)
		existing := domain.NewPendingRecurrence(task, due.AddDate(0, 0, 1))

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(existing, nil)

		result, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID(), UserID: task.UserID()})

		require.NoError(t, err)
		assert.Equal(t, existing.ID(), result.PendingID)
		pendingRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		outboxRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("returns error when task not found", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		taskID := uuid.New()
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, taskID).Return(nil, nil)

		_, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: taskID})

		assert.ErrorIs(t, err, ErrTaskNotFound)
		uow.AssertExpectations(t)
	})

	t.Run("returns error when task has no rule", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		task, err := domain.NewTask(uuid.New(), "Water plants", due)
		require.NoError(t, err)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)

		_, err = handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID()})

		assert.ErrorIs(t, err, ErrNoRecurrenceRule)
	})

	t.Run("returns error when task is open and rule does not recreate", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		task, err := domain.NewTask(uuid.New(), "Water plants", due)
		require.NoError(t, err)
		task.SetRecurrenceRule(mustRule(t, domain.RuleParams{
			Frequency: domain.FrequencyDaily,
			TimeZone:  "UTC",
		}))

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)

		_, err = handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID()})

		assert.ErrorIs(t, err, ErrTaskNotCompleted)
	})

	t.Run("schedules an open task when the rule recreates incomplete occurrences", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		task, err := domain.NewTask(uuid.New(), "Water plants", due)
		require.NoError(t, err)
		task.SetRecurrenceRule(mustRule(t, domain.RuleParams{
			Frequency:            domain.FrequencyDaily,
			RecreateIfIncomplete: true,
			TimeZone:             "UTC",
		}))

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(nil, nil)
		pendingRepo.On("Save", txCtx, mock.AnythingOfType("*domain.PendingRecurrence")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID(), UserID: task.UserID()})

		require.NoError(t, err)
		assert.Equal(t, 2, result.OccurrenceIndex)
	})

	t.Run("returns error when the occurrence limit is reached", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		completed := due.Add(time.Hour)
		task := domain.RehydrateTask(
			uuid.New(), uuid.New(), "Water plants", "", domain.PriorityMedium,
			due, &completed,
			mustRule(t, domain.RuleParams{
				Frequency:      domain.FrequencyDaily,
				MaxOccurrences: 3,
				TimeZone:       "UTC",
			}),
			nil, 3, time.Now(), time.Now(),
		)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)

		_, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID()})

		assert.ErrorIs(t, err, ErrOccurrenceLimitReached)
	})

	t.Run("schedules while under the occurrence limit", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		completed := due.Add(time.Hour)
		task := domain.RehydrateTask(
			uuid.New(), uuid.New(), "Water plants", "", domain.PriorityMedium,
			due, &completed,
			mustRule(t, domain.RuleParams{
				Frequency:      domain.FrequencyDaily,
				MaxOccurrences: 3,
				TimeZone:       "UTC",
			}),
			nil, 2, time.Now(), time.Now(),
		)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(nil, nil)
		pendingRepo.On("Save", txCtx, mock.AnythingOfType("*domain.PendingRecurrence")).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.AnythingOfType("[]*outbox.Message")).Return(nil)

		result, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID(), UserID: task.UserID()})

		require.NoError(t, err)
		assert.Equal(t, 3, result.OccurrenceIndex)
	})

	t.Run("returns error when the next occurrence is past the end date", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		end := due.Add(12 * time.Hour)
		task := completedRecurringTask(t, mustRule(t, domain.RuleParams{
			Frequency: domain.FrequencyDaily,
			EndDate:   &end,
			TimeZone:  "UTC",
		}), due)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(nil, nil)

		_, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID()})

		assert.ErrorIs(t, err, ErrEndDatePassed)
	})

	t.Run("returns error when the next occurrence lands exactly on the end date", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		pendingRepo := new(mockPendingRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, nil)

		// The end date is exclusive, so an occurrence falling on it is out.
		end := due.AddDate(0, 0, 1)
		task := completedRecurringTask(t, mustRule(t, domain.RuleParams{
			Frequency: domain.FrequencyDaily,
			EndDate:   &end,
			TimeZone:  "UTC",
		}), due)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, task.ID()).Return(task, nil)
		pendingRepo.On("FindBySourceTask", txCtx, task.ID()).Return(nil, nil)

		_, err := handler.Handle(ctx, SchedulePendingCommand{TaskID: task.ID()})

		assert.ErrorIs(t, err, ErrEndDatePassed)
		pendingRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
