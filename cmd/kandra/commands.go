package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blockedby/kandra/internal/applications"
	"github.com/blockedby/kandra/internal/auth"
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/notify"
	"github.com/blockedby/kandra/internal/watcher"
	"github.com/blockedby/kandra/internal/web"
	"github.com/blockedby/kandra/internal/web/handlers"
)

var errUsage = errors.New("usage")

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("KANDRA_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil || *email == "" {
		return errUsage
	}

	user, err := a.store.Auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("KANDRA_PASSWORD"), "account password")
	name := fs.String("name", "", "display or company name")
	role := fs.String("role", string(models.RoleCandidate), "candidate or company")
	if err := fs.Parse(args); err != nil || *email == "" {
		return errUsage
	}

	user, err := a.store.Auth.Register(ctx, auth.RegisterRequest{
		Email:    *email,
		Password: *password,
		Name:     *name,
		Role:     models.Role(*role),
	})
	if err != nil {
		return err
	}
	fmt.Printf("registered and signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.store.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	state := a.store.Auth.Snapshot()
	if state.User == nil {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s (%s)\n", state.User.Email, state.User.Role)
	return nil
}

func runJobs(ctx context.Context, a *app, args []string) error {
	fs := newFlags("jobs")
	query := fs.String("q", "", "free-text search")
	category := fs.String("category", "", "category, or any")
	types := fs.String("type", "", "comma-separated offer kinds")
	levels := fs.String("level", "", "comma-separated experience levels")
	salaryMin := fs.Int("salary-min", 0, "salary range lower bound, in thousands")
	salaryMax := fs.Int("salary-max", 0, "salary range upper bound, in thousands")
	salary := fs.String("salary", "", "comma-separated salary buckets: under_100, 100_1k, hourly")
	proposals := fs.String("proposals", "", "proposal bucket: lt_5, 5_10, 10_20, 20_50, 50_plus")
	more := fs.Int("more", 0, "additional pages to load")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	next := a.store.Jobs.Filter().SetSearchQuery(*query)
	if *category != "" {
		next = next.SetCategory(*category)
	}
	for _, v := range splitCSV(*types) {
		if kind, ok := models.ParseOfferKind(v); ok {
			next = next.ToggleJobType(kind)
		}
	}
	for _, v := range splitCSV(*levels) {
		if level, ok := models.ParseExperienceLevel(v); ok {
			next = next.ToggleExperienceLevel(level)
		}
	}
	if *salaryMin != 0 || *salaryMax != 0 {
		lo, hi := next.SalaryMin, next.SalaryMax
		if *salaryMin != 0 {
			lo = *salaryMin
		}
		if *salaryMax != 0 {
			hi = *salaryMax
		}
		next = next.SetSalaryRange(lo, hi)
	}
	for _, v := range splitCSV(*salary) {
		next = next.ToggleSalaryOption(filter.SalaryOption(v))
	}
	if *proposals != "" {
		next = next.SetProposalCount(filter.ProposalBucket(*proposals))
	}

	var err error
	if next.Equal(a.store.Jobs.Filter()) {
		err = a.store.Jobs.Search(ctx)
	} else {
		err = a.store.Jobs.UpdateFilter(ctx, func(filter.State) filter.State { return next })
	}
	if err != nil {
		return err
	}

	for i := 0; i < *more && a.store.Jobs.Snapshot().HasMore; i++ {
		if err := a.store.Jobs.LoadMore(ctx); err != nil {
			return err
		}
	}

	state := a.store.Jobs.Snapshot()
	printJobs(os.Stdout, state.Jobs)
	switch {
	case state.HasTotal:
		fmt.Printf("\n%d of %d offers\n", len(state.Jobs), state.Total)
	case state.HasMore:
		fmt.Printf("\n%d offers, more available (--more)\n", len(state.Jobs))
	}
	return nil
}

func runJob(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if a.store.Session.Authenticated() {
		// annotate the detail with the bookmark flag; failures only lose the flag
		_ = a.store.Jobs.LoadBookmarks(ctx)
	}
	job, err := a.store.Jobs.GetDetails(ctx, models.ID(args[0]))
	if err != nil {
		return err
	}
	printJob(os.Stdout, *job)
	return nil
}

func runBookmark(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.store.Jobs.LoadBookmarks(ctx); err != nil {
		return err
	}
	on, err := a.store.Jobs.ToggleBookmark(ctx, models.ID(args[0]))
	if err != nil {
		return err
	}
	if on {
		fmt.Printf("bookmarked %s\n", args[0])
	} else {
		fmt.Printf("removed bookmark %s\n", args[0])
	}
	return nil
}

func runBookmarks(ctx context.Context, a *app, _ []string) error {
	if err := a.store.Jobs.LoadBookmarks(ctx); err != nil {
		return err
	}
	printJobs(os.Stdout, a.store.Jobs.Snapshot().Saved)
	return nil
}

func runApply(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return errUsage
	}
	jobID := args[0]

	fs := newFlags("apply")
	resumePath := fs.String("resume", "", "resume file")
	cover := fs.String("cover", "", "cover letter text")
	coverFile := fs.String("cover-file", "", "cover letter file")
	motivation := fs.String("motivation", "", "motivation text")
	portfolioPath := fs.String("portfolio", "", "portfolio file")
	portfolioURL := fs.String("portfolio-url", "", "portfolio link")
	linkedInURL := fs.String("linkedin-url", "", "LinkedIn profile")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}

	req := applications.SubmitRequest{
		JobID:        models.ID(jobID),
		CoverLetter:  *cover,
		Motivation:   *motivation,
		PortfolioURL: *portfolioURL,
		LinkedInURL:  *linkedInURL,
	}
	if *coverFile != "" {
		data, err := os.ReadFile(*coverFile)
		if err != nil {
			return fmt.Errorf("read cover letter: %w", err)
		}
		req.CoverLetter = string(data)
	}

	var err error
	if req.Resume, err = readAttachment(*resumePath); err != nil {
		return err
	}
	if req.Portfolio, err = readAttachment(*portfolioPath); err != nil {
		return err
	}

	sub, err := a.store.Applications.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("application %s submitted (%s)\n", sub.ID, sub.Status)
	return nil
}

func readAttachment(path string) (*applications.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &applications.Attachment{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func runApplications(ctx context.Context, a *app, _ []string) error {
	if _, err := a.store.Applications.ListMine(ctx); err != nil {
		return err
	}
	state := a.store.Applications.Snapshot()
	printApplications(os.Stdout, state.Applications)
	s := state.Stats
	fmt.Printf("\ntotal %d: %d pending, %d in review, %d accepted, %d rejected\n",
		s.Total, s.Pending, s.InReview, s.Accepted, s.Rejected)
	return nil
}

func runApplication(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	rec, err := a.store.Applications.GetDetails(ctx, models.ID(args[0]))
	if err != nil {
		return err
	}
	printApplication(os.Stdout, *rec)
	return nil
}

func runStatus(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	status, ok := models.ParseApplicationStatus(args[1])
	if !ok {
		return fmt.Errorf("unknown status %q", args[1])
	}
	rec, err := a.store.Company.UpdateApplicantStatus(ctx, models.ID(args[0]), status)
	if err != nil {
		return err
	}
	fmt.Printf("application %s is now %s\n", rec.ID, rec.Status)
	return nil
}

func runOffers(ctx context.Context, a *app, _ []string) error {
	offers, err := a.store.Company.ListOffers(ctx)
	if err != nil {
		return err
	}
	printJobs(os.Stdout, offers)
	return nil
}

func runApplicants(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	apps, err := a.store.Company.ListApplicants(ctx, models.ID(args[0]))
	if err != nil {
		return err
	}
	printApplications(os.Stdout, apps)
	return nil
}

func runWatch(ctx context.Context, a *app, _ []string) error {
	if err := a.store.Auth.Require(); err != nil {
		return err
	}

	w := watcher.New(a.cfg.WatchSchedule, a.store.Applications, a.store.Session, notify.NewWriterNotifier(os.Stdout), a.log)
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("watching application statuses (%s), ctrl-c to stop\n", a.cfg.WatchSchedule)

	<-ctx.Done()
	w.Stop()
	return nil
}

func runServe(ctx context.Context, a *app, _ []string) error {
	hub := web.NewHub()
	go hub.Run()
	defer hub.Stop()
	defer hub.Follow(a.store.Bus)()

	srv := web.NewServer(&web.Config{Port: a.cfg.HTTPPort, CORSOrigins: a.cfg.CORSOrigins}, hub)
	srv.RegisterJobsHandler(handlers.NewJobsHandler(a.store.Jobs))
	srv.RegisterApplicationsHandler(handlers.NewApplicationsHandler(a.store.Applications, a.store.Company))
	srv.RegisterAuthHandler(handlers.NewAuthHandler(a.store.Auth))

	// status changes reach the views through the bus
	w := watcher.New(a.cfg.WatchSchedule, a.store.Applications, a.store.Session, notify.NewBusNotifier(a.store.Bus), a.log)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	a.log.Info().Int("port", a.cfg.HTTPPort).Msg("view bridge listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
