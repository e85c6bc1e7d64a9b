package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/daily-update-api/internal/emailtemplate"
	"github.com/noah-isme/daily-update-api/internal/models"
	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/jobs"
	"github.com/noah-isme/daily-update-api/pkg/mailer"
)

// JobTypeParentUpdates is the queue job type of an asynchronous class send.
const JobTypeParentUpdates = "daily_updates.parent"

// Job states tracked for asynchronous sends.
const (
	JobQueued    = "queued"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type emailRecordWriter interface {
	Create(ctx context.Context, record *models.DailyUpdateEmail) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// DispatchResult is the outcome of one email of a dispatch.
type DispatchResult struct {
	StudentID     string               `json:"studentId"`
	StudentName   string               `json:"studentName"`
	RecipientType models.RecipientType `json:"recipientType"`
	Recipient     string               `json:"recipient,omitempty"`
	Status        string               `json:"status"`
	MessageID     string               `json:"messageId,omitempty"`
	Error         string               `json:"error,omitempty"`
	Attempts      int                  `json:"attempts,omitempty"`
}

// DispatchSummary reports a class or single-student send.
type DispatchSummary struct {
	Date          string               `json:"date"`
	RecipientType models.RecipientType `json:"recipientType"`
	TotalStudents int                  `json:"totalStudents"`
	EmailsSent    int                  `json:"emailsSent"`
	EmailsFailed  int                  `json:"emailsFailed"`
	Skipped       int                  `json:"skipped"`
	Message       string               `json:"message"`
	Results       []DispatchResult     `json:"results"`
	Failures      []BatchFailure       `json:"failures"`
}

// EmailPreview is a rendered email that was not sent.
type EmailPreview struct {
	RecipientType models.RecipientType     `json:"recipientType"`
	Recipients    []string                 `json:"recipients"`
	Email         *emailtemplate.Email     `json:"email"`
	Update        *models.DailyUpdate      `json:"update"`
	Sections      []models.EmailSection    `json:"includedSections"`
	Validation    *models.ValidationResult `json:"validation,omitempty"`
}

// DeliverRequest is pre-rendered content sent to explicit recipients.
type DeliverRequest struct {
	Recipients  []string `json:"recipients" validate:"required,min=1,dive,email"`
	Subject     string   `json:"subject" validate:"required"`
	HTML        string   `json:"html"`
	Text        string   `json:"text"`
	StudentID   string   `json:"studentId"`
	StudentName string   `json:"studentName"`
	Date        string   `json:"date"`
}

// DispatchJob is the state of an asynchronous class send.
type DispatchJob struct {
	ID        string           `json:"id"`
	TeacherID string           `json:"teacherId"`
	Date      string           `json:"date"`
	Status    string           `json:"status"`
	Summary   *DispatchSummary `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
	QueuedAt  time.Time        `json:"queuedAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type parentUpdatesPayload struct {
	TeacherID string
	Date      time.Time
}

type pendingEmail struct {
	update    *models.DailyUpdate
	recipient models.RecipientType
	msg       *mailer.Message
}

// DailyUpdateDispatchService renders daily updates and sends them to parents
// and students, persisting every attempt.
type DailyUpdateDispatchService struct {
	updates     *DailyUpdateService
	email       *EmailService
	attachments *AttachmentService
	history     emailRecordWriter
	queue       jobEnqueuer
	validator   *validator.Validate
	logger      *zap.Logger

	mu        sync.RWMutex
	jobState  map[string]*DispatchJob
	delivered map[string]map[string]struct{}
}

// NewDailyUpdateDispatchService constructs the dispatcher. attachments may be nil.
func NewDailyUpdateDispatchService(updates *DailyUpdateService, email *EmailService, attachments *AttachmentService, history emailRecordWriter, logger *zap.Logger) *DailyUpdateDispatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyUpdateDispatchService{
		updates:     updates,
		email:       email,
		attachments: attachments,
		history:     history,
		validator:   validator.New(),
		logger:      logger,
		jobState:    make(map[string]*DispatchJob),
		delivered:   make(map[string]map[string]struct{}),
	}
}

// UseQueue enables asynchronous class sends.
func (s *DailyUpdateDispatchService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

type dispatchContext struct {
	teacher *models.Teacher
	gen     *DailyUpdateGenerator
	prefs   *models.EmailPreferences
	opts    emailtemplate.Options
	// delivered holds student/address pairs already sent by an earlier
	// attempt of the same queued job. nil outside queued sends.
	delivered map[string]struct{}
}

func (s *DailyUpdateDispatchService) prepare(ctx context.Context, teacherID string, date time.Time) (*dispatchContext, error) {
	gen, sources, err := s.updates.Generator(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	return &dispatchContext{
		teacher: sources.Teacher,
		gen:     gen,
		prefs:   CreateUnifiedEmailPreferences(sources.Teacher.EmailSettings, s.logger),
		opts: emailtemplate.Options{
			Location: s.updates.Location(),
			Trait:    sources.Teacher.CharacterTraits.ForMonth(int(date.Month())),
		},
	}, nil
}

func (s *DailyUpdateDispatchService) filterFor(dc *dispatchContext, t models.RecipientType) (*ContentFilter, error) {
	filter := CreateEmailContentFilter(dc.prefs, t, s.logger)
	if !filter.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("%s daily emails are disabled", capitalizeFirst(string(t))))
	}
	return filter, nil
}

// SendParentUpdates emails every active student's parents. Students with
// no parent address are skipped; individual failures do not stop the run.
func (s *DailyUpdateDispatchService) SendParentUpdates(ctx context.Context, teacherID string, date time.Time) (*DispatchSummary, error) {
	return s.sendParentUpdates(ctx, teacherID, date, nil)
}

func (s *DailyUpdateDispatchService) sendParentUpdates(ctx context.Context, teacherID string, date time.Time, delivered map[string]struct{}) (*DispatchSummary, error) {
	dc, err := s.prepare(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	dc.delivered = delivered
	filter, err := s.filterFor(dc, models.RecipientParent)
	if err != nil {
		return nil, err
	}

	updates := dc.gen.GenerateAll(date)
	summary := newDispatchSummary(date, models.RecipientParent, len(updates))
	pending := make([]pendingEmail, 0, len(updates))
	for i := range updates {
		update := &updates[i]
		if dc.gen.Inactive(update.StudentID) {
			summary.skip(update, models.RecipientParent, "Student is inactive")
			continue
		}
		if len(update.ParentEmails) == 0 {
			s.logger.Info("no parent emails found for student", zap.String("student_id", update.StudentID))
			summary.skip(update, models.RecipientParent, "No parent emails found for student")
			continue
		}
		msgs, err := s.parentMessages(dc, filter, update)
		if err != nil {
			summary.skip(update, models.RecipientParent, err.Error())
			continue
		}
		for _, msg := range msgs {
			if dc.wasDelivered(update.StudentID, msg.To[0]) {
				summary.skip(update, models.RecipientParent, "Already delivered")
				continue
			}
			pending = append(pending, pendingEmail{update: update, recipient: models.RecipientParent, msg: msg})
		}
	}

	if err := s.sendPending(ctx, dc, pending, summary); err != nil {
		return summary, err
	}
	summary.Message = fmt.Sprintf("Daily updates sent successfully! %d emails sent.", summary.EmailsSent)
	return summary, nil
}

// SendParentUpdate emails one student's parents, once per unique address.
func (s *DailyUpdateDispatchService) SendParentUpdate(ctx context.Context, teacherID, studentID string, date time.Time) (*DispatchSummary, error) {
	dc, err := s.prepare(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	filter, err := s.filterFor(dc, models.RecipientParent)
	if err != nil {
		return nil, err
	}
	update, err := dc.gen.Generate(studentID, date)
	if err != nil {
		return nil, err
	}
	if len(update.ParentEmails) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoRecipients, "No parent emails found for student")
	}
	msgs, err := s.parentMessages(dc, filter, update)
	if err != nil {
		return nil, err
	}

	summary := newDispatchSummary(date, models.RecipientParent, 1)
	pending := make([]pendingEmail, 0, len(msgs))
	for _, msg := range msgs {
		pending = append(pending, pendingEmail{update: update, recipient: models.RecipientParent, msg: msg})
	}
	if err := s.sendPending(ctx, dc, pending, summary); err != nil {
		return summary, err
	}
	summary.Message = fmt.Sprintf("Daily update sent to %d parents.", summary.EmailsSent)
	return summary, nil
}

// SendStudentEmails emails every active student who has an address on file,
// whether or not their parents have one.
func (s *DailyUpdateDispatchService) SendStudentEmails(ctx context.Context, teacherID string, date time.Time) (*DispatchSummary, error) {
	dc, err := s.prepare(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	filter, err := s.filterFor(dc, models.RecipientStudent)
	if err != nil {
		return nil, err
	}

	students := dc.gen.Students()
	summary := newDispatchSummary(date, models.RecipientStudent, len(students))
	pending := make([]pendingEmail, 0, len(students))
	for _, student := range students {
		update, err := dc.gen.Generate(student.ID, date)
		if err != nil {
			s.logger.Warn("skipping student email", zap.String("student_id", student.ID), zap.Error(err))
			summary.skip(&models.DailyUpdate{StudentID: student.ID, StudentName: strings.TrimSpace(student.FirstName + " " + student.LastName)}, models.RecipientStudent, err.Error())
			continue
		}
		if student.Status == models.StudentStatusInactive {
			summary.skip(update, models.RecipientStudent, "Student is inactive")
			continue
		}
		address := studentEmailAddress(student)
		if address == "" {
			summary.skip(update, models.RecipientStudent, "No student email found")
			continue
		}
		msg, err := s.studentMessage(dc, filter, update, address)
		if err != nil {
			summary.skip(update, models.RecipientStudent, err.Error())
			continue
		}
		pending = append(pending, pendingEmail{update: update, recipient: models.RecipientStudent, msg: msg})
	}

	if err := s.sendPending(ctx, dc, pending, summary); err != nil {
		return summary, err
	}
	summary.Message = fmt.Sprintf("Student emails sent successfully! %d emails sent.", summary.EmailsSent)
	return summary, nil
}

// SendStudentEmail emails one student.
func (s *DailyUpdateDispatchService) SendStudentEmail(ctx context.Context, teacherID, studentID string, date time.Time) (*DispatchSummary, error) {
	dc, err := s.prepare(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	filter, err := s.filterFor(dc, models.RecipientStudent)
	if err != nil {
		return nil, err
	}
	update, err := dc.gen.Generate(studentID, date)
	if err != nil {
		return nil, err
	}
	address := ""
	for _, student := range dc.gen.Students() {
		if student.ID == studentID {
			address = studentEmailAddress(student)
		}
	}
	if address == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "No student email found")
	}
	msg, err := s.studentMessage(dc, filter, update, address)
	if err != nil {
		return nil, err
	}

	summary := newDispatchSummary(date, models.RecipientStudent, 1)
	if err := s.sendPending(ctx, dc, []pendingEmail{{update: update, recipient: models.RecipientStudent, msg: msg}}, summary); err != nil {
		return summary, err
	}
	if summary.EmailsSent == 0 && len(summary.Failures) > 0 {
		return summary, appErrors.Clone(appErrors.ErrDeliveryFailed, summary.Failures[0].Error)
	}
	summary.Message = fmt.Sprintf("Student email sent to %s", address)
	return summary, nil
}

// Preview renders the email one student (or their parents) would receive.
func (s *DailyUpdateDispatchService) Preview(ctx context.Context, teacherID, studentID string, date time.Time, t models.RecipientType) (*EmailPreview, error) {
	if !t.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be parent or student")
	}
	dc, err := s.prepare(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	update, err := dc.gen.Generate(studentID, date)
	if err != nil {
		return nil, err
	}
	preview, err := s.render(dc.prefs, dc.opts, update, t)
	if err != nil {
		return nil, err
	}
	if t == models.RecipientParent {
		preview.Recipients = update.ParentEmails
	} else {
		for _, student := range dc.gen.Students() {
			if student.ID == studentID {
				if address := studentEmailAddress(student); address != "" {
					preview.Recipients = []string{address}
				}
			}
		}
	}
	return preview, nil
}

// PreviewFromData renders a student email from a client-supplied update.
func (s *DailyUpdateDispatchService) PreviewFromData(ctx context.Context, teacherID string, update *models.DailyUpdate) (*EmailPreview, error) {
	if check := ValidateContentFilterData(update); !check.IsValid {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid daily update data", check.Errors)
	}
	teacher, err := s.updates.Teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(update.Date, s.updates.Location())
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid date format")
	}
	update.Date = date.Format(DateLayout)
	if update.SchoolName == "" {
		update.SchoolName = teacher.SchoolName
	}
	if update.TeacherName == "" {
		update.TeacherName = teacher.Name
		if update.TeacherName == "" {
			update.TeacherName = teacher.DisplayName
		}
	}
	if update.TeacherEmail == "" {
		update.TeacherEmail = teacher.Email
	}
	prefs := CreateUnifiedEmailPreferences(teacher.EmailSettings, s.logger)
	opts := emailtemplate.Options{Location: s.updates.Location(), Trait: teacher.CharacterTraits.ForMonth(int(date.Month()))}
	return s.render(prefs, opts, update, models.RecipientStudent)
}

// Deliver sends pre-rendered content to explicit recipients, one email each.
func (s *DailyUpdateDispatchService) Deliver(ctx context.Context, teacherID string, req DeliverRequest) (*DispatchSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if strings.TrimSpace(req.HTML) == "" && strings.TrimSpace(req.Text) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "html or text content is required")
	}
	teacher, err := s.updates.Teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	recipients := uniqueAddresses(req.Recipients)
	if len(recipients) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoRecipients, "At least one recipient is required")
	}
	update := &models.DailyUpdate{StudentID: req.StudentID, StudentName: req.StudentName, Date: req.Date}
	if update.Date == "" {
		update.Date = time.Now().In(s.updates.Location()).Format(DateLayout)
	}

	dc := &dispatchContext{teacher: teacher}
	summary := &DispatchSummary{Date: update.Date, RecipientType: models.RecipientStudent, TotalStudents: 1, Results: []DispatchResult{}, Failures: []BatchFailure{}}
	pending := make([]pendingEmail, 0, len(recipients))
	for _, to := range recipients {
		pending = append(pending, pendingEmail{update: update, recipient: models.RecipientStudent, msg: &mailer.Message{
			To:      []string{to},
			ReplyTo: teacher.Email,
			Subject: req.Subject,
			HTML:    req.HTML,
			Text:    req.Text,
			Tags:    messageTags(update, models.RecipientStudent),
		}})
	}
	if err := s.sendPending(ctx, dc, pending, summary); err != nil {
		return summary, err
	}
	summary.Message = fmt.Sprintf("Delivered to %d of %d recipients.", summary.EmailsSent, len(recipients))
	return summary, nil
}

// EnqueueParentUpdates schedules SendParentUpdates on the background queue.
func (s *DailyUpdateDispatchService) EnqueueParentUpdates(teacherID string, date time.Time) (*DispatchJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "asynchronous sending is not enabled")
	}
	now := time.Now().UTC()
	state := &DispatchJob{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Date:      date.Format(DateLayout),
		Status:    JobQueued,
		QueuedAt:  now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobState[state.ID] = state
	s.mu.Unlock()

	job := jobs.Job{ID: state.ID, Type: JobTypeParentUpdates, Payload: parentUpdatesPayload{TeacherID: teacherID, Date: date}}
	if err := s.queue.Enqueue(job); err != nil {
		s.mu.Lock()
		delete(s.jobState, state.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrTransportUnavailable.Code, appErrors.ErrTransportUnavailable.Status, "failed to queue daily updates")
	}
	copied := *state
	return &copied, nil
}

// HandleJob runs a queued class send.
func (s *DailyUpdateDispatchService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(parentUpdatesPayload)
	if job.Type != JobTypeParentUpdates || !ok {
		return fmt.Errorf("unsupported job %s", job.Type)
	}
	summary, err := s.sendParentUpdates(ctx, payload.TeacherID, payload.Date, s.deliveredFor(job.ID))
	if err != nil {
		return err
	}
	s.updateJob(job.ID, func(state *DispatchJob) {
		state.Summary = summary
	})
	return nil
}

// FinishJob records the final state of a queued send.
func (s *DailyUpdateDispatchService) FinishJob(job jobs.Job, err error) {
	s.mu.Lock()
	delete(s.delivered, job.ID)
	s.mu.Unlock()
	s.updateJob(job.ID, func(state *DispatchJob) {
		if err != nil {
			state.Status = JobFailed
			state.Error = err.Error()
			return
		}
		state.Status = JobCompleted
	})
}

// Job returns the state of a queued send owned by teacherID.
func (s *DailyUpdateDispatchService) Job(teacherID, id string) (*DispatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.jobState[id]
	if !ok || state.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	copied := *state
	return &copied, nil
}

// deliveredFor returns the set of pairs a queued job has already sent. Queue
// retries of one job run sequentially, so the set is never shared.
func (s *DailyUpdateDispatchService) deliveredFor(jobID string) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.delivered[jobID]
	if !ok {
		set = make(map[string]struct{})
		s.delivered[jobID] = set
	}
	return set
}

func (s *DailyUpdateDispatchService) updateJob(id string, fn func(*DispatchJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.jobState[id]; ok {
		fn(state)
		state.UpdatedAt = time.Now().UTC()
	}
}

func (s *DailyUpdateDispatchService) render(prefs *models.EmailPreferences, opts emailtemplate.Options, update *models.DailyUpdate, t models.RecipientType) (*EmailPreview, error) {
	filter := CreateEmailContentFilter(prefs, t, s.logger)
	var (
		email *emailtemplate.Email
		err   error
	)
	if t == models.RecipientParent {
		email, err = emailtemplate.BuildParentEmail(update, filter, opts)
	} else {
		email, err = emailtemplate.BuildStudentEmail(update, filter, opts)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to render email")
	}
	return &EmailPreview{
		RecipientType: t,
		Recipients:    []string{},
		Email:         email,
		Update:        update,
		Sections:      filter.IncludedSections(update),
		Validation:    ValidateEmailData(update, prefs),
	}, nil
}

func (s *DailyUpdateDispatchService) parentMessages(dc *dispatchContext, filter *ContentFilter, update *models.DailyUpdate) ([]*mailer.Message, error) {
	email, err := emailtemplate.BuildParentEmail(update, filter, dc.opts)
	if err != nil {
		return nil, err
	}
	attachments := s.attachments.ForDailyUpdate(update)
	msgs := make([]*mailer.Message, 0, len(update.ParentEmails))
	for _, to := range uniqueAddresses(update.ParentEmails) {
		msgs = append(msgs, &mailer.Message{
			To:          []string{to},
			ReplyTo:     dc.teacher.Email,
			Subject:     email.Subject,
			HTML:        email.HTML,
			Text:        email.Text,
			Attachments: attachments,
			Tags:        messageTags(update, models.RecipientParent),
		})
	}
	return msgs, nil
}

func (s *DailyUpdateDispatchService) studentMessage(dc *dispatchContext, filter *ContentFilter, update *models.DailyUpdate, address string) (*mailer.Message, error) {
	email, err := emailtemplate.BuildStudentEmail(update, filter, dc.opts)
	if err != nil {
		return nil, err
	}
	return &mailer.Message{
		To:      []string{address},
		ReplyTo: dc.teacher.Email,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
		Tags:    messageTags(update, models.RecipientStudent),
	}, nil
}

func (s *DailyUpdateDispatchService) sendPending(ctx context.Context, dc *dispatchContext, pending []pendingEmail, summary *DispatchSummary) error {
	if len(pending) == 0 {
		return nil
	}
	msgs := make([]*mailer.Message, len(pending))
	for i, p := range pending {
		msgs[i] = p.msg
	}
	batch, err := s.email.SendBatch(ctx, dc.teacher.EmailTransport, msgs, nil, 0)
	if batch == nil {
		return err
	}

	method := s.email.router.Resolve(dc.teacher.EmailTransport).Name()
	for i, outcome := range batch.Outcomes {
		p := pending[i]
		result := DispatchResult{
			StudentID:     p.update.StudentID,
			StudentName:   p.update.StudentName,
			RecipientType: p.recipient,
			Recipient:     outcome.Recipient,
			Attempts:      outcome.Attempts,
		}
		record := &models.DailyUpdateEmail{
			TeacherID:     dc.teacher.ID,
			StudentID:     p.update.StudentID,
			StudentName:   p.update.StudentName,
			Subject:       p.msg.Subject,
			Recipients:    p.msg.To,
			RecipientType: p.recipient,
			Date:          p.update.Date,
			Method:        method,
		}
		if outcome.Sent() {
			dc.markDelivered(p.update.StudentID, p.msg.To[0])
			summary.EmailsSent++
			result.Status = models.EmailStatusSent
			result.MessageID = outcome.Result.MessageID
			record.SentStatus = models.EmailStatusSent
			record.MessageID = outcome.Result.MessageID
			record.Method = outcome.Result.Transport
			record.SentAt = outcome.Result.SentAt
		} else {
			summary.EmailsFailed++
			result.Status = models.EmailStatusFailed
			result.Error = outcome.Error
			record.SentStatus = models.EmailStatusFailed
			record.Error = outcome.Error
		}
		summary.Results = append(summary.Results, result)
		s.persist(ctx, record)
	}
	summary.Failures = append(summary.Failures, batch.Failures...)

	s.logger.Info("daily update dispatch finished",
		zap.String("teacher_id", dc.teacher.ID),
		zap.String("recipient_type", string(summary.RecipientType)),
		zap.Int("sent", summary.EmailsSent),
		zap.Int("failed", summary.EmailsFailed),
		zap.Int("skipped", summary.Skipped),
	)
	return err
}

func (s *DailyUpdateDispatchService) persist(ctx context.Context, record *models.DailyUpdateEmail) {
	if s.history == nil {
		return
	}
	// Recorded even when the request was cancelled mid-batch.
	if err := s.history.Create(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("persist daily update email failed", zap.String("student_id", record.StudentID), zap.Error(err))
	}
}

func (dc *dispatchContext) wasDelivered(studentID, address string) bool {
	if dc.delivered == nil {
		return false
	}
	_, ok := dc.delivered[studentID+"|"+address]
	return ok
}

func (dc *dispatchContext) markDelivered(studentID, address string) {
	if dc.delivered != nil {
		dc.delivered[studentID+"|"+address] = struct{}{}
	}
}

func newDispatchSummary(date time.Time, t models.RecipientType, total int) *DispatchSummary {
	return &DispatchSummary{
		Date:          date.Format(DateLayout),
		RecipientType: t,
		TotalStudents: total,
		Results:       []DispatchResult{},
		Failures:      []BatchFailure{},
	}
}

func (d *DispatchSummary) skip(update *models.DailyUpdate, t models.RecipientType, reason string) {
	d.Skipped++
	d.Results = append(d.Results, DispatchResult{
		StudentID:     update.StudentID,
		StudentName:   update.StudentName,
		RecipientType: t,
		Status:        models.EmailStatusSkipped,
		Error:         reason,
	})
}

func messageTags(update *models.DailyUpdate, t models.RecipientType) map[string]string {
	return map[string]string{
		"student_id":     update.StudentID,
		"recipient_type": string(t),
		"update_date":    update.Date,
	}
}

func studentEmailAddress(s models.Student) string {
	for _, candidate := range []string{s.StudentEmail, s.Email} {
		if trimmed := strings.ToLower(strings.TrimSpace(candidate)); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
