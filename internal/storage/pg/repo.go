package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/dobot-link/internal/sender"
)

// JournalRepo 命令交换日志（实现 sender.Journal）
type JournalRepo struct {
	Pool       *pgxpool.Pool
	InstanceID string
}

// ExchangeRow exchange_log 的一行
type ExchangeRow struct {
	ID         int64     `json:"id"`
	InstanceID string    `json:"instance_id"`
	CmdID      uint8     `json:"cmd_id"`
	CmdName    string    `json:"cmd_name"`
	IsRead     bool      `json:"is_read"`
	IsQueued   bool      `json:"is_queued"`
	QueueIndex *uint64   `json:"queue_index,omitempty"`
	Attempts   int       `json:"attempts"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error,omitempty"`
	DurationUS int64     `json:"duration_us"`
	CreatedAt  time.Time `json:"created_at"`
}

func newRow(instanceID string, ex sender.Exchange) ExchangeRow {
	row := ExchangeRow{
		InstanceID: instanceID,
		CmdID:      uint8(ex.ID),
		CmdName:    ex.ID.String(),
		IsRead:     ex.IsRead,
		IsQueued:   ex.IsQueued,
		QueueIndex: ex.QueueIndex,
		Attempts:   ex.Attempts,
		Success:    ex.Err == nil,
		DurationUS: ex.Duration.Microseconds(),
		CreatedAt:  ex.At,
	}
	if ex.Err != nil {
		msg := ex.Err.Error()
		row.Error = &msg
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	return row
}

// Record 写入一次交换
func (r *JournalRepo) Record(ctx context.Context, ex sender.Exchange) error {
	row := newRow(r.InstanceID, ex)
	var qi *int64
	if row.QueueIndex != nil {
		v := int64(*row.QueueIndex)
		qi = &v
	}
	const q = `INSERT INTO exchange_log
               (instance_id, cmd_id, cmd_name, is_read, is_queued, queue_index, attempts, success, error, duration_us, created_at)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.Pool.Exec(ctx, q, row.InstanceID, int16(row.CmdID), row.CmdName, row.IsRead, row.IsQueued,
		qi, row.Attempts, row.Success, row.Error, row.DurationUS, row.CreatedAt)
	return err
}

const selectColumns = `SELECT id, instance_id, cmd_id, cmd_name, is_read, is_queued, queue_index,
               attempts, success, error, duration_us, created_at FROM exchange_log`

// Recent 最近 limit 条交换（新的在前）
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]ExchangeRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.Pool.Query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExchangeRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ByQueueIndex 查找分配到该队列序号的命令；不存在时返回 nil, nil
func (r *JournalRepo) ByQueueIndex(ctx context.Context, idx uint64) (*ExchangeRow, error) {
	row, err := scanRow(r.Pool.QueryRow(ctx,
		selectColumns+` WHERE queue_index = $1 ORDER BY created_at DESC LIMIT 1`, int64(idx)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Prune 删除早于 before 的记录
func (r *JournalRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM exchange_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRow(s pgx.Row) (ExchangeRow, error) {
	var (
		row   ExchangeRow
		cmdID int16
		qi    *int64
	)
	err := s.Scan(&row.ID, &row.InstanceID, &cmdID, &row.CmdName, &row.IsRead, &row.IsQueued, &qi,
		&row.Attempts, &row.Success, &row.Error, &row.DurationUS, &row.CreatedAt)
	if err != nil {
		return ExchangeRow{}, err
	}
	row.CmdID = uint8(cmdID)
	if qi != nil {
		v := uint64(*qi)
		row.QueueIndex = &v
	}
	return row, nil
}
