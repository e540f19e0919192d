package board

import (
	"errors"
	"sync"

	"github.com/ayumu-k/teamboard-api/internal/logger"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"go.uber.org/zap"
)

var (
	ErrIndexOutOfRange = errors.New("board: index out of range")
	ErrClosed          = errors.New("board: controller is closed")
)

// Client is the slice of the task API the board needs. Implementations
// typically wrap an HTTP client; tests use a fake.
type Client interface {
	// ReorderColumn replaces a column's ordering with the given ID list.
	ReorderColumn(teamID uint64, status models.TaskStatus, taskIDs []uint64) error

	// MoveTask moves a task to a column at a specific index.
	MoveTask(taskID uint64, status models.TaskStatus, index int) error
}

// operation is one queued write against the API. Do performs the call;
// Compensate undoes the optimistic local change when Do fails. A nil
// Compensate means failures are logged and the local state kept.
type operation struct {
	name       string
	do         func() error
	compensate func()
}

// Controller keeps one team's board state in memory and applies drag-and-drop
// moves optimistically, pushing the matching API writes through a FIFO queue.
type Controller struct {
	teamID uint64
	client Client

	mu      sync.Mutex
	columns map[models.TaskStatus][]models.Task

	// sendMu serializes enqueues against Close so the worker can take mu
	// while a producer waits on a full queue.
	sendMu sync.Mutex
	closed bool
	ops    chan operation
	wg     sync.WaitGroup
}

// NewController creates a controller for one team and starts its worker.
func NewController(teamID uint64, client Client) *Controller {
	c := &Controller{
		teamID:  teamID,
		client:  client,
		columns: make(map[models.TaskStatus][]models.Task),
		ops:     make(chan operation, 64),
	}

	c.wg.Add(1)
	go c.run()

	return c
}

func (c *Controller) run() {
	defer c.wg.Done()
	for op := range c.ops {
		if err := op.do(); err != nil {
			if op.compensate != nil {
				logger.L().Warn("board operation failed, reverting",
					zap.String("op", op.name), zap.Error(err))
				op.compensate()
			} else {
				logger.L().Warn("board operation failed",
					zap.String("op", op.name), zap.Error(err))
			}
		}
	}
}

func (c *Controller) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}

func (c *Controller) enqueue(op operation) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.ops <- op
	return nil
}

// Load replaces the board state. Tasks are bucketed by status in the order
// given, so callers pass them position-sorted.
func (c *Controller) Load(tasks []models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.columns = make(map[models.TaskStatus][]models.Task)
	for _, task := range tasks {
		c.columns[task.Status] = append(c.columns[task.Status], task)
	}
}

// Column returns a copy of one column in render order.
func (c *Controller) Column(status models.TaskStatus) []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	column := c.columns[status]
	out := make([]models.Task, len(column))
	copy(out, column)
	return out
}

// MoveWithinColumn moves the task at fromIndex to toIndex in the same column.
// The local splice happens immediately; the reorder call is queued. A failed
// reorder is logged but the local order is kept, since the next full load
// resynchronizes.
func (c *Controller) MoveWithinColumn(status models.TaskStatus, fromIndex, toIndex int) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.mu.Lock()

	column := c.columns[status]
	if fromIndex < 0 || fromIndex >= len(column) || toIndex < 0 || toIndex >= len(column) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}

	task := column[fromIndex]
	column = append(column[:fromIndex], column[fromIndex+1:]...)
	column = insertTask(column, toIndex, task)
	c.columns[status] = column

	ids := taskIDs(column)
	c.mu.Unlock()

	teamID := c.teamID
	return c.enqueue(operation{
		name: "reorder",
		do: func() error {
			return c.client.ReorderColumn(teamID, status, ids)
		},
	})
}

// MoveAcrossColumns moves the task at fromIndex in one column to toIndex in
// another. The local move happens immediately; the API call is queued with a
// compensation that puts the task back at its origin if the call fails.
func (c *Controller) MoveAcrossColumns(from models.TaskStatus, fromIndex int, to models.TaskStatus, toIndex int) error {
	if c.isClosed() {
		return ErrClosed
	}
	if from == to {
		return c.MoveWithinColumn(from, fromIndex, toIndex)
	}

	c.mu.Lock()

	source := c.columns[from]
	if fromIndex < 0 || fromIndex >= len(source) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	dest := c.columns[to]
	if toIndex < 0 || toIndex > len(dest) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}

	task := source[fromIndex]
	c.columns[from] = append(source[:fromIndex], source[fromIndex+1:]...)

	task.Status = to
	c.columns[to] = insertTask(dest, toIndex, task)

	c.mu.Unlock()

	taskID := task.ID
	originStatus := from
	originIndex := fromIndex

	return c.enqueue(operation{
		name: "move",
		do: func() error {
			return c.client.MoveTask(taskID, to, toIndex)
		},
		compensate: func() {
			c.revertMove(taskID, to, originStatus, originIndex)
		},
	})
}

// revertMove pulls a task out of the column it was optimistically placed in
// and reinserts it at its origin.
func (c *Controller) revertMove(taskID uint64, placed models.TaskStatus, origin models.TaskStatus, originIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	column := c.columns[placed]
	found := -1
	for i, task := range column {
		if task.ID == taskID {
			found = i
			break
		}
	}
	if found == -1 {
		return
	}

	task := column[found]
	c.columns[placed] = append(column[:found], column[found+1:]...)

	task.Status = origin
	originColumn := c.columns[origin]
	if originIndex > len(originColumn) {
		originIndex = len(originColumn)
	}
	c.columns[origin] = insertTask(originColumn, originIndex, task)
}

// Close stops accepting moves and waits for queued operations to drain.
func (c *Controller) Close() {
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		return
	}
	c.closed = true
	close(c.ops)
	c.sendMu.Unlock()

	c.wg.Wait()
}

func insertTask(tasks []models.Task, index int, task models.Task) []models.Task {
	tasks = append(tasks, models.Task{})
	copy(tasks[index+1:], tasks[index:])
	tasks[index] = task
	return tasks
}

func taskIDs(tasks []models.Task) []uint64 {
	ids := make([]uint64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}
