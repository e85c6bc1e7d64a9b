package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/daily-update-api/internal/models"
)

const dailyUpdateEmailColumns = `id, teacher_id, COALESCE(student_id, '') AS student_id, COALESCE(student_name, '') AS student_name, subject,
        recipients, recipient_type, to_char(update_date, 'YYYY-MM-DD') AS update_date, sent_status, COALESCE(message_id, '') AS message_id, method,
        COALESCE(error, '') AS error, sent_at`

// DailyUpdateEmailRepository persists the history of daily update sends.
type DailyUpdateEmailRepository struct {
	db *sqlx.DB
}

// NewDailyUpdateEmailRepository constructs a DailyUpdateEmailRepository.
func NewDailyUpdateEmailRepository(db *sqlx.DB) *DailyUpdateEmailRepository {
	return &DailyUpdateEmailRepository{db: db}
}

// Create inserts a send record.
func (r *DailyUpdateEmailRepository) Create(ctx context.Context, record *models.DailyUpdateEmail) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO daily_update_emails (id, teacher_id, student_id, student_name, subject, recipients, recipient_type,
        update_date, sent_status, message_id, method, error, sent_at)
        VALUES (:id, :teacher_id, NULLIF(:student_id, ''), :student_name, :subject, :recipients, :recipient_type,
        :update_date, :sent_status, NULLIF(:message_id, ''), :method, NULLIF(:error, ''), :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create daily update email: %w", err)
	}
	return nil
}

// List returns a page of send records matching filter, newest first, with the
// total match count.
func (r *DailyUpdateEmailRepository) List(ctx context.Context, filter models.DailyUpdateEmailFilter) ([]models.DailyUpdateEmail, int, error) {
	where, args := buildDailyUpdateEmailFilter(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM daily_update_emails WHERE %s ORDER BY sent_at DESC LIMIT %d OFFSET %d`,
		dailyUpdateEmailColumns, where, size, offset)
	records := make([]models.DailyUpdateEmail, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list daily update emails: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM daily_update_emails WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count daily update emails: %w", err)
	}
	return records, total, nil
}

// ListAll returns every record matching filter without paging, for exports.
func (r *DailyUpdateEmailRepository) ListAll(ctx context.Context, filter models.DailyUpdateEmailFilter) ([]models.DailyUpdateEmail, error) {
	where, args := buildDailyUpdateEmailFilter(filter)
	query := fmt.Sprintf(`SELECT %s FROM daily_update_emails WHERE %s ORDER BY sent_at DESC`, dailyUpdateEmailColumns, where)
	records := make([]models.DailyUpdateEmail, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("export daily update emails: %w", err)
	}
	return records, nil
}

// DeleteBefore removes records sent before cutoff and reports how many went.
func (r *DailyUpdateEmailRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM daily_update_emails WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge daily update emails: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge daily update emails: %w", err)
	}
	return affected, nil
}

func buildDailyUpdateEmailFilter(filter models.DailyUpdateEmailFilter) (string, []interface{}) {
	where := []string{"teacher_id = $1"}
	args := []interface{}{filter.TeacherID}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.RecipientType != "" {
		add("recipient_type = $%d", string(filter.RecipientType))
	}
	if filter.Status != "" {
		add("sent_status = $%d", filter.Status)
	}
	if filter.DateFrom != "" {
		add("update_date >= $%d", filter.DateFrom)
	}
	if filter.DateTo != "" {
		add("update_date <= $%d", filter.DateTo)
	}
	return strings.Join(where, " AND "), args
}
