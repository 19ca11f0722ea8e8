package api

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/repository"
	"github.com/go-fuego/fuego"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
	maxUploadBytes  = 10 << 20
)

// ============================================================================
// Health
// ============================================================================

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	return HealthResponse{
		Status:  "ok",
		Version: "dev",
	}, nil
}

// ============================================================================
// Auth Handlers
// ============================================================================

func (s *Server) login(c fuego.ContextWithBody[LoginRequest]) (AuthResponse, error) {
	body, err := c.Body()
	if err != nil {
		return AuthResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	user, err := s.deps.Users.Authenticate(c.Context(), body.Email, body.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		return AuthResponse{}, fuego.UnauthorizedError{Detail: "Invalid email or password"}
	}
	if err != nil {
		return AuthResponse{}, s.internal(err, "login")
	}

	return s.issue(c, user)
}

func (s *Server) register(c fuego.ContextWithBody[RegisterRequest]) (AuthResponse, error) {
	body, err := c.Body()
	if err != nil {
		return AuthResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}
	if !strings.Contains(body.Email, "@") {
		return AuthResponse{}, fuego.BadRequestError{Detail: "Invalid email address"}
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(body.Role)))
	switch role {
	case "":
		role = models.RoleCandidate
	case models.RoleCandidate, models.RoleCompany:
	default:
		return AuthResponse{}, fuego.BadRequestError{Detail: "Invalid role"}
	}
	if role == models.RoleCompany && strings.TrimSpace(body.Name) == "" {
		return AuthResponse{}, fuego.BadRequestError{Detail: "Company name is required"}
	}

	user, err := s.deps.Users.Create(c.Context(), body.Email, body.Password, body.Name, role)
	if errors.Is(err, repository.ErrConflict) {
		return AuthResponse{}, fuego.ConflictError{Detail: "Email already registered"}
	}
	if err != nil {
		return AuthResponse{}, s.internal(err, "register")
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("registered account")
	return s.issue(c, user)
}

func (s *Server) issue(c requestContext, user *models.User) (AuthResponse, error) {
	token, err := s.deps.Users.IssueToken(c.Context(), user.ID)
	if err != nil {
		return AuthResponse{}, s.internal(err, "issue token")
	}
	return AuthResponse{Token: token, User: UserFromModel(*user)}, nil
}

func (s *Server) me(c fuego.ContextNoBody) (MeResponse, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return MeResponse{}, err
	}
	return MeResponse{User: UserFromModel(*user)}, nil
}

// ============================================================================
// Offers Handlers
// ============================================================================

func (s *Server) listJobs(c fuego.ContextNoBody) (JobsListResponse, error) {
	offset := parseIntWithDefault(c.QueryParam("offset"), 0)
	limit := parseIntWithDefault(c.QueryParam("limit"), defaultPageSize)

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	q := repository.JobQuery{
		Filter: filter.FromQuery(c.Request().URL.Query(), s.deps.Domain),
		Status: models.JobStatusPublished,
		Offset: offset,
		Limit:  limit,
	}

	jobs, total, err := s.deps.Jobs.List(c.Context(), q)
	if err != nil {
		return JobsListResponse{}, s.internal(err, "list jobs")
	}

	return JobsListResponse{
		Data:       JobsFromModels(jobs),
		Pagination: Pagination{Total: total, Offset: offset, Limit: limit},
	}, nil
}

func (s *Server) getJob(c fuego.ContextNoBody) (JobEnvelope, error) {
	job, err := s.deps.Jobs.GetByID(c.Context(), models.ID(c.PathParam("id")))
	if err != nil {
		return JobEnvelope{}, s.storageError(err, "get job", "Offer")
	}
	return JobEnvelope{Job: JobFromModel(*job)}, nil
}

func (s *Server) createJob(c fuego.ContextWithBody[OfferRequest]) (JobEnvelope, error) {
	company, err := s.requireRole(c, models.RoleCompany)
	if err != nil {
		return JobEnvelope{}, err
	}

	body, err := c.Body()
	if err != nil {
		return JobEnvelope{}, fuego.BadRequestError{Detail: err.Error()}
	}
	if strings.TrimSpace(body.Title) == "" {
		return JobEnvelope{}, fuego.BadRequestError{Detail: "Title is required"}
	}

	kind := models.OfferFullTime
	if body.Kind != "" {
		k, ok := models.ParseOfferKind(body.Kind)
		if !ok {
			return JobEnvelope{}, fuego.BadRequestError{Detail: "Invalid offer kind"}
		}
		kind = k
	}

	var level models.ExperienceLevel
	if body.ExperienceLevel != "" {
		l, ok := models.ParseExperienceLevel(body.ExperienceLevel)
		if !ok {
			return JobEnvelope{}, fuego.BadRequestError{Detail: "Invalid experience level"}
		}
		level = l
	}

	status := models.JobStatus(body.Status)
	if status == "" {
		status = models.JobStatusPublished
	}
	if !status.Valid() {
		return JobEnvelope{}, fuego.BadRequestError{Detail: "Invalid status"}
	}

	if body.SalaryMin != nil && body.SalaryMax != nil && *body.SalaryMin > *body.SalaryMax {
		return JobEnvelope{}, fuego.BadRequestError{Detail: "Salary minimum exceeds maximum"}
	}

	job, err := s.deps.Jobs.Create(c.Context(), *company, repository.NewJob{
		Title:           body.Title,
		Description:     body.Description,
		Location:        body.Location,
		Category:        body.Category,
		Kind:            kind,
		ExperienceLevel: level,
		Salary:          models.Salary{Text: body.SalaryText, Min: body.SalaryMin, Max: body.SalaryMax},
		Skills:          body.Skills,
		Status:          status,
	})
	if err != nil {
		return JobEnvelope{}, s.internal(err, "create job")
	}

	s.log.Info().Str("job_id", job.ID.String()).Str("company_id", company.ID.String()).Msg("created offer")
	return JobEnvelope{Job: JobFromModel(*job)}, nil
}

func (s *Server) updateJobStatus(c fuego.ContextWithBody[StatusRequest]) (JobEnvelope, error) {
	company, err := s.requireRole(c, models.RoleCompany)
	if err != nil {
		return JobEnvelope{}, err
	}

	body, err := c.Body()
	if err != nil {
		return JobEnvelope{}, fuego.BadRequestError{Detail: err.Error()}
	}
	status := models.JobStatus(strings.ToLower(body.Status))
	if !status.Valid() {
		return JobEnvelope{}, fuego.BadRequestError{Detail: "Invalid status"}
	}

	id := models.ID(c.PathParam("id"))
	if err := s.requireOwner(c, company, id); err != nil {
		return JobEnvelope{}, err
	}

	job, err := s.deps.Jobs.UpdateStatus(c.Context(), id, status)
	if err != nil {
		return JobEnvelope{}, s.storageError(err, "update job status", "Offer")
	}
	return JobEnvelope{Job: JobFromModel(*job)}, nil
}

func (s *Server) listJobApplications(c fuego.ContextNoBody) (ApplicationsListResponse, error) {
	company, err := s.requireRole(c, models.RoleCompany)
	if err != nil {
		return ApplicationsListResponse{}, err
	}

	id := models.ID(c.PathParam("id"))
	if err := s.requireOwner(c, company, id); err != nil {
		return ApplicationsListResponse{}, err
	}

	apps, err := s.deps.Applications.ListByJob(c.Context(), id)
	if err != nil {
		return ApplicationsListResponse{}, s.internal(err, "list job applications")
	}
	return ApplicationsListResponse{Applications: ApplicationsFromModels(apps)}, nil
}

// requireOwner fails unless company owns job id.
func (s *Server) requireOwner(c requestContext, company *models.User, id models.ID) error {
	row, err := s.deps.Jobs.GetRow(c.Context(), id)
	if err != nil {
		return s.storageError(err, "get job", "Offer")
	}
	if row.CompanyID != company.ID.String() && company.Role != models.RoleAdmin {
		return fuego.ForbiddenError{Detail: "You do not own this offer"}
	}
	return nil
}

func (s *Server) listCompanyJobs(c fuego.ContextNoBody) (JobsListResponse, error) {
	company, err := s.requireRole(c, models.RoleCompany)
	if err != nil {
		return JobsListResponse{}, err
	}

	jobs, total, err := s.deps.Jobs.List(c.Context(), repository.JobQuery{
		Filter:    filter.Default(s.deps.Domain),
		CompanyID: company.ID,
	})
	if err != nil {
		return JobsListResponse{}, s.internal(err, "list company jobs")
	}

	return JobsListResponse{
		Data:       JobsFromModels(jobs),
		Pagination: Pagination{Total: total, Offset: 0, Limit: total},
	}, nil
}

func (s *Server) companyStats(c fuego.ContextNoBody) (repository.CompanyStats, error) {
	company, err := s.requireRole(c, models.RoleCompany)
	if err != nil {
		return repository.CompanyStats{}, err
	}

	stats, err := s.deps.Stats.ForCompany(c.Context(), company.ID)
	if err != nil {
		return repository.CompanyStats{}, s.internal(err, "company stats")
	}
	return *stats, nil
}

// ============================================================================
// Applications Handlers
// ============================================================================

func (s *Server) createApplication(c fuego.ContextNoBody) (ApplicationEnvelope, error) {
	user, err := s.requireRole(c, models.RoleCandidate)
	if err != nil {
		return ApplicationEnvelope{}, err
	}

	r := c.Request()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return ApplicationEnvelope{}, fuego.BadRequestError{Detail: "Expected a multipart form"}
	}

	jobID := strings.TrimSpace(r.FormValue("job_id"))
	if jobID == "" {
		jobID = strings.TrimSpace(r.FormValue("jobId"))
	}
	if jobID == "" {
		return ApplicationEnvelope{}, fuego.BadRequestError{Detail: "job_id is required"}
	}

	coverLetter := strings.TrimSpace(r.FormValue("cover_letter"))
	if coverLetter == "" {
		return ApplicationEnvelope{}, fuego.BadRequestError{Detail: "A cover letter is required"}
	}

	resume, err := s.saveUpload(r.MultipartForm, "resume")
	if err != nil {
		return ApplicationEnvelope{}, err
	}
	if resume == "" {
		return ApplicationEnvelope{}, fuego.BadRequestError{Detail: "A resume file is required"}
	}
	portfolio, err := s.saveUpload(r.MultipartForm, "portfolio")
	if err != nil {
		return ApplicationEnvelope{}, err
	}

	app, err := s.deps.Applications.Create(c.Context(), repository.NewApplication{
		JobID:         models.ID(jobID),
		UserID:        user.ID,
		CoverLetter:   coverLetter,
		Motivation:    r.FormValue("motivation"),
		PortfolioURL:  r.FormValue("portfolio_url"),
		LinkedInURL:   r.FormValue("linkedin_url"),
		ResumePath:    resume,
		PortfolioPath: portfolio,
	})
	if errors.Is(err, repository.ErrConflict) {
		return ApplicationEnvelope{}, fuego.ConflictError{Detail: "You have already applied to this offer"}
	}
	if err != nil {
		return ApplicationEnvelope{}, s.storageError(err, "create application", "Offer")
	}

	return ApplicationEnvelope{Application: ApplicationFromModel(*app)}, nil
}

// saveUpload stores the first file of field, returning "" when absent.
func (s *Server) saveUpload(form *multipart.Form, field string) (string, error) {
	if form == nil || len(form.File[field]) == 0 {
		return "", nil
	}
	header := form.File[field][0]

	f, err := header.Open()
	if err != nil {
		return "", fuego.BadRequestError{Detail: "Unreadable " + field + " file"}
	}
	defer f.Close()

	name, err := s.deps.Files.Save(header.Filename, f)
	if err != nil {
		return "", s.internal(err, "save "+field)
	}
	return name, nil
}

func (s *Server) listMyApplications(c fuego.ContextNoBody) (ApplicationsListResponse, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return ApplicationsListResponse{}, err
	}

	apps, err := s.deps.Applications.ListByUser(c.Context(), user.ID)
	if err != nil {
		return ApplicationsListResponse{}, s.internal(err, "list applications")
	}
	return ApplicationsListResponse{Applications: ApplicationsFromModels(apps)}, nil
}

func (s *Server) getApplication(c fuego.ContextNoBody) (ApplicationEnvelope, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return ApplicationEnvelope{}, err
	}

	id := models.ID(c.PathParam("id"))
	if err := s.requireApplicationAccess(c, user, id, false); err != nil {
		return ApplicationEnvelope{}, err
	}

	app, err := s.deps.Applications.GetByID(c.Context(), id)
	if err != nil {
		return ApplicationEnvelope{}, s.storageError(err, "get application", "Application")
	}
	return ApplicationEnvelope{Application: ApplicationFromModel(*app)}, nil
}

func (s *Server) updateApplicationStatus(c fuego.ContextWithBody[StatusRequest]) (ApplicationEnvelope, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return ApplicationEnvelope{}, err
	}

	body, err := c.Body()
	if err != nil {
		return ApplicationEnvelope{}, fuego.BadRequestError{Detail: err.Error()}
	}
	status, ok := models.ParseApplicationStatus(body.Status)
	if !ok {
		return ApplicationEnvelope{}, fuego.BadRequestError{Detail: "Invalid status"}
	}

	id := models.ID(c.PathParam("id"))
	if err := s.requireApplicationAccess(c, user, id, true); err != nil {
		return ApplicationEnvelope{}, err
	}

	app, err := s.deps.Applications.UpdateStatus(c.Context(), id, status)
	if err != nil {
		return ApplicationEnvelope{}, s.storageError(err, "update application status", "Application")
	}
	return ApplicationEnvelope{Application: ApplicationFromModel(*app)}, nil
}

// requireApplicationAccess lets the applicant read their application and
// the owning company read or change it.
func (s *Server) requireApplicationAccess(c requestContext, user *models.User, id models.ID, write bool) error {
	row, err := s.deps.Applications.GetRow(c.Context(), id)
	if err != nil {
		return s.storageError(err, "get application", "Application")
	}
	if user.Role == models.RoleAdmin {
		return nil
	}
	if !write && row.UserID == user.ID.String() {
		return nil
	}

	job, err := s.deps.Jobs.GetRow(c.Context(), models.ID(row.JobID))
	if err != nil {
		return s.storageError(err, "get job", "Offer")
	}
	if job.CompanyID == user.ID.String() {
		return nil
	}
	return fuego.ForbiddenError{Detail: "You cannot access this application"}
}

// ============================================================================
// Bookmarks Handlers
// ============================================================================

func (s *Server) listBookmarks(c fuego.ContextNoBody) (BookmarksListResponse, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return BookmarksListResponse{}, err
	}

	jobs, err := s.deps.Bookmarks.List(c.Context(), user.ID)
	if err != nil {
		return BookmarksListResponse{}, s.internal(err, "list bookmarks")
	}
	return BookmarksListResponse{Data: JobsFromModels(jobs)}, nil
}

func (s *Server) addBookmark(c fuego.ContextWithBody[BookmarkRequest]) (BookmarkResponse, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return BookmarkResponse{}, err
	}

	body, err := c.Body()
	if err != nil {
		return BookmarkResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}
	jobID := body.JobID
	if jobID == "" {
		jobID = body.JobIDCamel
	}
	if jobID == "" {
		return BookmarkResponse{}, fuego.BadRequestError{Detail: "job_id is required"}
	}

	if err := s.deps.Bookmarks.Add(c.Context(), user.ID, models.ID(jobID)); err != nil {
		return BookmarkResponse{}, s.storageError(err, "add bookmark", "Offer")
	}
	return BookmarkResponse{JobID: jobID, Bookmarked: true}, nil
}

func (s *Server) removeBookmark(c fuego.ContextNoBody) (BookmarkResponse, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return BookmarkResponse{}, err
	}

	jobID := c.PathParam("id")
	if err := s.deps.Bookmarks.Remove(c.Context(), user.ID, models.ID(jobID)); err != nil {
		return BookmarkResponse{}, s.internal(err, "remove bookmark")
	}
	return BookmarkResponse{JobID: jobID, Bookmarked: false}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
