// Package conference defines the six conference-management record types
// and the CRUD service over them: users, events, sessions, registrations,
// feedback and papers. Records are stored as JSON documents; relationships
// are soft references by identifier string, never enforced by the store.
package conference

// Collection names and identifier prefixes per entity type.
const (
	UserCollection         = "users"
	EventCollection        = "events"
	SessionCollection      = "sessions"
	RegistrationCollection = "registrations"
	FeedbackCollection     = "feedbacks"
	PaperCollection        = "papers"

	UserPrefix         = "u"
	EventPrefix        = "e"
	SessionPrefix      = "s"
	RegistrationPrefix = "r"
	FeedbackPrefix     = "f"
	PaperPrefix        = "p"
)

// User is the stored user record. Password always holds the bcrypt hash,
// never plaintext; it is stripped from every API response via Public.
type User struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Password         string   `json:"password,omitempty"`
	Role             string   `json:"role"`
	Organization     string   `json:"organization"`
	Phone            string   `json:"phone"`
	RegisteredEvents []string `json:"registered_events"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// PublicUser is the caller-facing projection of User. Fields are
// enumerated explicitly: anything not listed here (the password hash)
// can never leak into a response.
type PublicUser struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Role             string   `json:"role"`
	Organization     string   `json:"organization"`
	Phone            string   `json:"phone"`
	RegisteredEvents []string `json:"registered_events"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// Public returns the projection of u exposed to callers.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		Organization:     u.Organization,
		Phone:            u.Phone,
		RegisteredEvents: u.RegisteredEvents,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// Event is a conference event. CurrentParticipants is mutated only by
// registration create/delete, never through UpdateEvent.
type Event struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Fee                 int    `json:"fee"`
	Description         string `json:"description"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	Location            string `json:"location"`
	OrganizerID         string `json:"organizer_id"`
	MaxParticipants     int    `json:"max_participants"`
	CurrentParticipants int    `json:"current_participants"`
	Status              string `json:"status"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// Session is a talk or track inside an event. EventID is a back-reference
// fixed at creation time.
type Session struct {
	ID          string   `json:"id"`
	EventID     string   `json:"event_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SpeakerID   string   `json:"speaker_id"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Room        string   `json:"room"`
	Topics      []string `json:"topics"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Registration records a user's attendance at an event.
type Registration struct {
	ID               string `json:"id"`
	EventID          string `json:"event_id"`
	UserID           string `json:"user_id"`
	RegistrationDate string `json:"registration_date"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
	PaymentAmount    int    `json:"payment_amount"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// Feedback is a rating for an event or one of its sessions. It carries
// no updated_at field: the creation timestamp is immutable even though
// rating and comment may still be edited.
type Feedback struct {
	ID        string  `json:"id"`
	EventID   string  `json:"event_id"`
	UserID    string  `json:"user_id"`
	Rating    int     `json:"rating"`
	CreatedAt string  `json:"created_at"`
	SessionID *string `json:"session_id"`
	Comment   *string `json:"comment"`
}

// Paper is a submitted paper. SessionID is optional and assigned later
// when the paper is scheduled.
type Paper struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	AuthorIDs      []string `json:"author_ids"`
	Abstract       string   `json:"abstract"`
	Keywords       []string `json:"keywords"`
	FileURL        string   `json:"file_url"`
	Status         string   `json:"status"`
	SubmissionDate string   `json:"submission_date"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	SessionID      *string  `json:"session_id"`
}

// --- Create inputs ---

type CreateUserInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
}

type CreateEventInput struct {
	Title               string `json:"title"`
	Fee                 int    `json:"fee"`
	Description         string `json:"description"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	Location            string `json:"location"`
	OrganizerID         string `json:"organizer_id"`
	MaxParticipants     int    `json:"max_participants"`
	Status              string `json:"status"`
	CurrentParticipants int    `json:"current_participants"`
}

type CreateSessionInput struct {
	EventID     string   `json:"event_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SpeakerID   string   `json:"speaker_id"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Room        string   `json:"room"`
	Topics      []string `json:"topics"`
}

type CreateRegistrationInput struct {
	EventID       string `json:"event_id"`
	PaymentAmount int    `json:"payment_amount"`
	PaymentStatus string `json:"payment_status"`
}

type CreateFeedbackInput struct {
	EventID   string  `json:"event_id"`
	Rating    int     `json:"rating"`
	SessionID *string `json:"session_id"`
	Comment   *string `json:"comment"`
}

type CreatePaperInput struct {
	Title     string   `json:"title"`
	AuthorIDs []string `json:"author_ids"`
	Abstract  string   `json:"abstract"`
	Keywords  []string `json:"keywords"`
	FileURL   string   `json:"file_url"`
	Status    string   `json:"status"`
	SessionID *string  `json:"session_id"`
}

// --- Update inputs ---
//
// Update inputs are partial patches: nil means the field was not provided
// and must be left untouched. Each input enumerates its patchable fields
// in fields(); anything not listed there cannot be changed through update.

type UpdateUserInput struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Role         *string `json:"role"`
	Organization *string `json:"organization"`
	Phone        *string `json:"phone"`
	Password     *string `json:"password"`
}

// fields excludes the password, which needs hashing and is handled
// separately by the service.
func (in UpdateUserInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	setString(f, "name", in.Name)
	setString(f, "email", in.Email)
	setString(f, "role", in.Role)
	setString(f, "organization", in.Organization)
	setString(f, "phone", in.Phone)
	return f
}

type UpdateEventInput struct {
	Fee             *int    `json:"fee"`
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	Location        *string `json:"location"`
	MaxParticipants *int    `json:"max_participants"`
	Status          *string `json:"status"`
	OrganizerID     *string `json:"organizer_id"`
}

func (in UpdateEventInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	setInt(f, "fee", in.Fee)
	setString(f, "title", in.Title)
	setString(f, "description", in.Description)
	setString(f, "start_date", in.StartDate)
	setString(f, "end_date", in.EndDate)
	setString(f, "location", in.Location)
	setInt(f, "max_participants", in.MaxParticipants)
	setString(f, "status", in.Status)
	setString(f, "organizer_id", in.OrganizerID)
	return f
}

type UpdateSessionInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	SpeakerID   *string   `json:"speaker_id"`
	StartTime   *string   `json:"start_time"`
	EndTime     *string   `json:"end_time"`
	Room        *string   `json:"room"`
	Topics      *[]string `json:"topics"`
}

// fields omits event_id: the back-reference is immutable after creation.
func (in UpdateSessionInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	setString(f, "title", in.Title)
	setString(f, "description", in.Description)
	setString(f, "speaker_id", in.SpeakerID)
	setString(f, "start_time", in.StartTime)
	setString(f, "end_time", in.EndTime)
	setString(f, "room", in.Room)
	if in.Topics != nil {
		f["topics"] = *in.Topics
	}
	return f
}

type UpdateRegistrationInput struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

func (in UpdateRegistrationInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	setString(f, "status", in.Status)
	setString(f, "payment_status", in.PaymentStatus)
	return f
}

type UpdateFeedbackInput struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (in UpdateFeedbackInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	setInt(f, "rating", in.Rating)
	setString(f, "comment", in.Comment)
	return f
}

type UpdatePaperInput struct {
	Title     *string   `json:"title"`
	AuthorIDs *[]string `json:"author_ids"`
	Abstract  *string   `json:"abstract"`
	Keywords  *[]string `json:"keywords"`
	FileURL   *string   `json:"file_url"`
	Status    *string   `json:"status"`
	SessionID *string   `json:"session_id"`
}

func (in UpdatePaperInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	setString(f, "title", in.Title)
	if in.AuthorIDs != nil {
		f["author_ids"] = *in.AuthorIDs
	}
	setString(f, "abstract", in.Abstract)
	if in.Keywords != nil {
		f["keywords"] = *in.Keywords
	}
	setString(f, "file_url", in.FileURL)
	setString(f, "status", in.Status)
	setString(f, "session_id", in.SessionID)
	return f
}

func setString(f map[string]interface{}, name string, v *string) {
	if v != nil {
		f[name] = *v
	}
}

func setInt(f map[string]interface{}, name string, v *int) {
	if v != nil {
		f[name] = *v
	}
}
