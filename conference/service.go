package conference

import (
	"context"
	"fmt"
	"time"

	"github.com/confdesk/confdata"
	"golang.org/x/crypto/bcrypt"
)

// Page is the pagination envelope returned by every list operation.
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// Service implements the query/mutation operations over the six entity
// types. Identifiers come from the sequence allocator; timestamps are
// UTC ISO-8601 strings stamped server-side.
type Service struct {
	store  *confdata.Store
	seq    *confdata.SequenceAllocator
	logger confdata.Logger
	retry  confdata.RetryConfig

	users         *Collection[User]
	events        *Collection[Event]
	sessions      *Collection[Session]
	registrations *Collection[Registration]
	feedbacks     *Collection[Feedback]
	papers        *Collection[Paper]
}

// NewService creates the conference service over a store and allocator.
func NewService(store *confdata.Store, seq *confdata.SequenceAllocator, logger confdata.Logger) *Service {
	if logger == nil {
		logger = &confdata.NoOpLogger{}
	}
	return &Service{
		store:         store,
		seq:           seq,
		logger:        logger,
		retry:         confdata.DefaultRetryConfig(),
		users:         NewCollection[User](store, UserCollection),
		events:        NewCollection[Event](store, EventCollection),
		sessions:      NewCollection[Session](store, SessionCollection),
		registrations: NewCollection[Registration](store, RegistrationCollection),
		feedbacks:     NewCollection[Feedback](store, FeedbackCollection),
		papers:        NewCollection[Paper](store, PaperCollection),
	}
}

// listPage runs a filtered, paginated list over a collection and wraps
// the result in the pagination envelope.
func listPage[T any](ctx context.Context, c *Collection[T], page, limit int, filter map[string]string) (*Page[T], error) {
	page, limit, skip := confdata.NormalizePage(page, limit)

	items, total, err := c.List(ctx, skip, limit, filter)
	if err != nil {
		return nil, err
	}

	return &Page[T]{
		Items:       items,
		TotalCount:  total,
		TotalPages:  confdata.TotalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// getByID maps a missing document to (nil, nil): not-found is an outcome
// of the lookup, not a failure.
func getByID[T any](ctx context.Context, c *Collection[T], id string) (*T, error) {
	item, err := c.Get(ctx, id)
	if err != nil {
		if confdata.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// patchByID applies a partial update with the same not-found mapping.
func patchByID[T any](ctx context.Context, c *Collection[T], id string, fields map[string]interface{}) (*T, error) {
	item, err := c.Patch(ctx, id, fields)
	if err != nil {
		if confdata.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// --- Users ---

func (s *Service) ListUsers(ctx context.Context, page, limit int) (*Page[PublicUser], error) {
	p, err := listPage(ctx, s.users, page, limit, nil)
	if err != nil {
		return nil, err
	}

	public := make([]PublicUser, len(p.Items))
	for i, u := range p.Items {
		public[i] = u.Public()
	}
	return &Page[PublicUser]{
		Items:       public,
		TotalCount:  p.TotalCount,
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
		Limit:       p.Limit,
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*PublicUser, error) {
	u, err := getByID(ctx, s.users, id)
	if err != nil || u == nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*PublicUser, error) {
	id, err := s.seq.Next(ctx, UserCollection, UserPrefix)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := confdata.ISONow()
	user := User{
		ID:               id,
		Name:             in.Name,
		Email:            in.Email,
		Password:         string(hash),
		Role:             in.Role,
		Organization:     in.Organization,
		Phone:            in.Phone,
		RegisteredEvents: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.users.Insert(ctx, id, &user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "id", id)
	pub := user.Public()
	return &pub, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*PublicUser, error) {
	fields := in.fields()

	// A present but empty password is dropped; a non-empty one is
	// re-hashed before it ever reaches the store.
	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password"] = string(hash)
	}

	u, err := patchByID(ctx, s.users, id, fields)
	if err != nil || u == nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) (bool, error) {
	return s.users.Delete(ctx, id)
}

// Login verifies credentials and returns the public user. Invalid email
// and invalid password are the same application error: never a
// not-found, never a hint about which half was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*PublicUser, error) {
	u, err := s.users.FindOne(ctx, map[string]string{"email": email})
	if err != nil {
		if confdata.IsNotFound(err) {
			return nil, confdata.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, confdata.ErrInvalidCredentials
	}

	pub := u.Public()
	return &pub, nil
}

// --- Events ---

func (s *Service) ListEvents(ctx context.Context, page, limit int) (*Page[Event], error) {
	return listPage(ctx, s.events, page, limit, nil)
}

func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return getByID(ctx, s.events, id)
}

// CreateEvent creates an event owned by the calling user. The caller
// identity wins over any organizer_id supplied in the input.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput, callerID string) (*Event, error) {
	id, err := s.seq.Next(ctx, EventCollection, EventPrefix)
	if err != nil {
		return nil, err
	}

	organizer := callerID
	if organizer == "" {
		organizer = in.OrganizerID
	}
	status := in.Status
	if status == "" {
		status = "upcoming"
	}

	now := confdata.ISONow()
	event := Event{
		ID:                  id,
		Title:               in.Title,
		Fee:                 in.Fee,
		Description:         in.Description,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		Location:            in.Location,
		OrganizerID:         organizer,
		MaxParticipants:     in.MaxParticipants,
		CurrentParticipants: in.CurrentParticipants,
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.events.Insert(ctx, id, &event); err != nil {
		return nil, err
	}

	s.logger.Info("event created", "id", id, "organizer", organizer)
	return &event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id string, in UpdateEventInput) (*Event, error) {
	fields := in.fields()
	if len(fields) > 0 {
		fields["updated_at"] = confdata.ISONow()
	}
	return patchByID(ctx, s.events, id, fields)
}

func (s *Service) DeleteEvent(ctx context.Context, id string) (bool, error) {
	return s.events.Delete(ctx, id)
}

// --- Sessions ---

func (s *Service) ListSessions(ctx context.Context, page, limit int) (*Page[Session], error) {
	return listPage(ctx, s.sessions, page, limit, nil)
}

func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	return getByID(ctx, s.sessions, id)
}

func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	id, err := s.seq.Next(ctx, SessionCollection, SessionPrefix)
	if err != nil {
		return nil, err
	}

	now := confdata.ISONow()
	session := Session{
		ID:          id,
		EventID:     in.EventID,
		Title:       in.Title,
		Description: in.Description,
		SpeakerID:   in.SpeakerID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Room:        in.Room,
		Topics:      in.Topics,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.sessions.Insert(ctx, id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Service) UpdateSession(ctx context.Context, id string, in UpdateSessionInput) (*Session, error) {
	fields := in.fields()
	if len(fields) > 0 {
		fields["updated_at"] = confdata.ISONow()
	}
	return patchByID(ctx, s.sessions, id, fields)
}

func (s *Service) DeleteSession(ctx context.Context, id string) (bool, error) {
	return s.sessions.Delete(ctx, id)
}

// --- Registrations ---

// ListRegistrations supports optional event/user filters. Both the page
// and the reported total honor the same filter.
func (s *Service) ListRegistrations(ctx context.Context, page, limit int, eventID, userID string) (*Page[Registration], error) {
	filter := map[string]string{
		"event_id": eventID,
		"user_id":  userID,
	}
	return listPage(ctx, s.registrations, page, limit, filter)
}

func (s *Service) GetRegistration(ctx context.Context, id string) (*Registration, error) {
	return getByID(ctx, s.registrations, id)
}

// CreateRegistration registers the calling user for an event and
// increments the event's participant counter. The two writes are not a
// transaction: a failure after the insert leaves the counter behind.
func (s *Service) CreateRegistration(ctx context.Context, in CreateRegistrationInput, userID string) (*Registration, error) {
	id, err := s.seq.Next(ctx, RegistrationCollection, RegistrationPrefix)
	if err != nil {
		return nil, err
	}

	paymentStatus := in.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = "pending"
	}

	now := confdata.ISONow()
	reg := Registration{
		ID:               id,
		EventID:          in.EventID,
		UserID:           userID,
		RegistrationDate: now,
		Status:           "pending",
		PaymentStatus:    paymentStatus,
		PaymentAmount:    in.PaymentAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.registrations.Insert(ctx, id, &reg); err != nil {
		return nil, err
	}

	if err := s.bumpParticipants(ctx, in.EventID, +1); err != nil {
		return nil, err
	}

	s.logger.Info("registration created", "id", id, "event", in.EventID, "user", userID)
	return &reg, nil
}

func (s *Service) UpdateRegistration(ctx context.Context, id string, in UpdateRegistrationInput) (*Registration, error) {
	fields := in.fields()
	if len(fields) > 0 {
		fields["updated_at"] = confdata.ISONow()
	}
	return patchByID(ctx, s.registrations, id, fields)
}

// DeleteRegistration removes a registration and gives back its slot on
// the event counter. The decrement happens only when the registration
// actually existed.
func (s *Service) DeleteRegistration(ctx context.Context, id string) (bool, error) {
	reg, err := getByID(ctx, s.registrations, id)
	if err != nil {
		return false, err
	}
	if reg != nil {
		if err := s.bumpParticipants(ctx, reg.EventID, -1); err != nil {
			return false, err
		}
	}
	return s.registrations.Delete(ctx, id)
}

// bumpParticipants adjusts an event's current_participants by delta using
// a compare-and-swap loop on the event document. A missing event is
// skipped: references are soft, the registration stands on its own.
func (s *Service) bumpParticipants(ctx context.Context, eventID string, delta int) error {
	key := s.events.Key(eventID)

	for attempt := 0; attempt < s.retry.MaxRetries; attempt++ {
		var event Event
		etag, err := s.store.GetJSONWithETag(ctx, key, &event)
		if err != nil {
			if confdata.IsNotFound(err) {
				s.logger.Warn("participant counter skipped, event missing", "event", eventID)
				return nil
			}
			return err
		}

		event.CurrentParticipants += delta

		if _, err := s.store.PutJSONWithETag(ctx, key, event, etag); err == nil {
			return nil
		} else if !confdata.IsConflict(err) {
			return err
		}

		time.Sleep(s.retry.InitialBackoff * time.Duration(1<<uint(attempt)))
	}

	return confdata.WithContext(confdata.ErrConflict, map[string]interface{}{
		"event":   eventID,
		"retries": s.retry.MaxRetries,
	})
}

// --- Feedback ---

func (s *Service) ListFeedbacks(ctx context.Context, page, limit int) (*Page[Feedback], error) {
	return listPage(ctx, s.feedbacks, page, limit, nil)
}

func (s *Service) GetFeedback(ctx context.Context, id string) (*Feedback, error) {
	return getByID(ctx, s.feedbacks, id)
}

func (s *Service) CreateFeedback(ctx context.Context, in CreateFeedbackInput, userID string) (*Feedback, error) {
	id, err := s.seq.Next(ctx, FeedbackCollection, FeedbackPrefix)
	if err != nil {
		return nil, err
	}

	fb := Feedback{
		ID:        id,
		EventID:   in.EventID,
		UserID:    userID,
		Rating:    in.Rating,
		CreatedAt: confdata.ISONow(),
		SessionID: in.SessionID,
		Comment:   in.Comment,
	}

	if err := s.feedbacks.Insert(ctx, id, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// UpdateFeedback patches rating/comment. Feedback has no updated_at
// field, so nothing is stamped.
func (s *Service) UpdateFeedback(ctx context.Context, id string, in UpdateFeedbackInput) (*Feedback, error) {
	return patchByID(ctx, s.feedbacks, id, in.fields())
}

func (s *Service) DeleteFeedback(ctx context.Context, id string) (bool, error) {
	return s.feedbacks.Delete(ctx, id)
}

// --- Papers ---

func (s *Service) ListPapers(ctx context.Context, page, limit int) (*Page[Paper], error) {
	return listPage(ctx, s.papers, page, limit, nil)
}

func (s *Service) GetPaper(ctx context.Context, id string) (*Paper, error) {
	return getByID(ctx, s.papers, id)
}

func (s *Service) CreatePaper(ctx context.Context, in CreatePaperInput) (*Paper, error) {
	id, err := s.seq.Next(ctx, PaperCollection, PaperPrefix)
	if err != nil {
		return nil, err
	}

	now := confdata.ISONow()
	paper := Paper{
		ID:             id,
		Title:          in.Title,
		AuthorIDs:      in.AuthorIDs,
		Abstract:       in.Abstract,
		Keywords:       in.Keywords,
		FileURL:        in.FileURL,
		Status:         in.Status,
		SubmissionDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
		SessionID:      in.SessionID,
	}

	if err := s.papers.Insert(ctx, id, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (s *Service) UpdatePaper(ctx context.Context, id string, in UpdatePaperInput) (*Paper, error) {
	fields := in.fields()
	if len(fields) > 0 {
		fields["updated_at"] = confdata.ISONow()
	}
	return patchByID(ctx, s.papers, id, fields)
}

func (s *Service) DeletePaper(ctx context.Context, id string) (bool, error) {
	return s.papers.Delete(ctx, id)
}
