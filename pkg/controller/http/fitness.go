package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"github.com/stridelog/stridelog/pkg/usecase"
	"github.com/stridelog/stridelog/pkg/utils/errutil"
)

const fitnessStateCookie = "fitness_oauth_state"

type basePage struct {
	AppName string
}

func (s *Server) basePage() basePage {
	return basePage{AppName: s.tuning.AppName}
}

func (s *Server) homeHandler() http.HandlerFunc {
	type page struct {
		basePage
		SignedIn         bool
		StoreUnavailable bool
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := page{basePage: s.basePage()}
		if s.uc.Auth.IsNoAuthn() {
			data.SignedIn = true
		} else if _, err := sessionFromRequest(r, s.uc.Auth); err == nil {
			data.SignedIn = true
		}
		s.renderPage(w, r, "home.html", data)
	}
}

func (s *Server) staticPageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, name, s.basePage())
	}
}

func (s *Server) profileHandler() http.HandlerFunc {
	type page struct {
		basePage
		Name          string
		Email         string
		Photo         string
		Connected     bool
		HasSnapshot   bool
		Steps         int64
		Calories      float64
		ActiveMinutes int64
		LastUpdated   string
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		user, err := s.uc.Fitness.GetUser(r.Context(), token.UserID)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		data := page{
			basePage:  s.basePage(),
			Name:      user.DisplayName,
			Email:     user.Email,
			Photo:     user.Photo,
			Connected: user.HasFitnessConnection(),
		}
		if user.Metrics != nil {
			data.HasSnapshot = true
			data.Steps = user.Metrics.Steps
			data.Calories = user.Metrics.Calories
			data.ActiveMinutes = user.Metrics.ActiveMinutes
			data.LastUpdated = relativeTime(user.Metrics.LastUpdated, time.Now())
		}

		s.renderPage(w, r, "profile.html", data)
	}
}

func (s *Server) connectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := generateState()
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		setStateCookie(w, r, fitnessStateCookie, state)
		http.Redirect(w, r, s.uc.Fitness.ConnectURL(state), http.StatusTemporaryRedirect)
	}
}

func (s *Server) fitnessCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The provider reports a declined consent as an error parameter
		// before any code exchange happens.
		if r.URL.Query().Get("error") != "" {
			http.Redirect(w, r, "/oauth-error", http.StatusTemporaryRedirect)
			return
		}

		if err := verifyStateCookie(w, r, fitnessStateCookie); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Redirect(w, r, "/oauth-error", http.StatusTemporaryRedirect)
			return
		}

		token, _ := auth.TokenFromContext(r.Context())
		if err := s.uc.Fitness.CompleteConnect(r.Context(), token.UserID, code); err != nil {
			if goerr.HasTag(err, types.TagConsentDeclined) {
				http.Redirect(w, r, "/oauth-error", http.StatusTemporaryRedirect)
				return
			}
			// Other exchange failures leave the account as it was; the
			// dashboard keeps offering the connect button.
			errutil.Handle(r.Context(), err, "fitness connect failed")
			http.Redirect(w, r, "/success", http.StatusTemporaryRedirect)
			return
		}

		http.Redirect(w, r, "/refresh/fitness", http.StatusTemporaryRedirect)
	}
}

func (s *Server) refreshHandler() http.HandlerFunc {
	type errorPage struct {
		basePage
		Message string
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		result, err := s.uc.Fitness.SyncNow(r.Context(), token.UserID)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		switch result.Outcome {
		case types.SyncOutcomeNoCredentials:
			http.Redirect(w, r, "/connect/fitness", http.StatusTemporaryRedirect)
		case types.SyncOutcomeNeedsReconnect:
			http.Redirect(w, r, "/reconnect/fitness", http.StatusTemporaryRedirect)
		case types.SyncOutcomeFailed:
			data := errorPage{basePage: s.basePage(), Message: "The fitness provider could not be reached."}
			if result.Err != nil {
				data.Message = result.Err.Error()
			}
			s.renderPage(w, r, "error.html", data)
		default:
			http.Redirect(w, r, "/success", http.StatusTemporaryRedirect)
		}
	}
}

func (s *Server) forceSyncHandler() http.HandlerFunc {
	type page struct {
		basePage
		JobID          string
		PollMillis     int64
		FallbackMillis int64
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		job, err := s.uc.Fitness.StartForceSync(r.Context(), token.UserID)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		s.renderPage(w, r, "loading.html", page{
			basePage:   s.basePage(),
			JobID:      job.ID.String(),
			PollMillis: 1000,
			// Redirect anyway once the delay plus a generous fetch budget
			// has passed, in case polling never sees a terminal state.
			FallbackMillis: (s.tuning.ForceSyncDelay + 15*time.Second).Milliseconds(),
		})
	}
}

func (s *Server) reconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		if err := s.uc.Fitness.Disconnect(r.Context(), token.UserID); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		s.renderPage(w, r, "reconnect.html", s.basePage())
	}
}

func (s *Server) historyPageHandler() http.HandlerFunc {
	type page struct {
		basePage
		Days int
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, "history.html", page{
			basePage: s.basePage(),
			Days:     s.tuning.HistoryMaxDays,
		})
	}
}

func (s *Server) debugStepDataHandler() http.HandlerFunc {
	type pointView struct {
		Start string
		End   string
		Steps int64
	}
	type sourceView struct {
		ID     string
		Steps  int64
		Points []pointView
	}
	type page struct {
		basePage
		WindowStart string
		WindowEnd   string
		TotalSteps  int64
		Sources     []sourceView
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		breakdown, err := s.uc.Fitness.SourceBreakdown(r.Context(), token.UserID)
		if err != nil {
			if errors.Is(err, usecase.ErrNoCredentials) {
				http.Redirect(w, r, "/connect/fitness", http.StatusTemporaryRedirect)
				return
			}
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		data := page{
			basePage:    s.basePage(),
			WindowStart: breakdown.WindowStart.Format("15:04"),
			WindowEnd:   breakdown.WindowEnd.Format("15:04"),
			TotalSteps:  breakdown.TotalSteps,
		}
		for _, src := range breakdown.Sources {
			view := sourceView{ID: src.DataSourceID, Steps: src.Steps}
			for _, p := range src.Points {
				view.Points = append(view.Points, pointView{
					Start: p.Start.Format("15:04:05"),
					End:   p.End.Format("15:04:05"),
					Steps: p.Steps,
				})
			}
			data.Sources = append(data.Sources, view)
		}

		s.renderPage(w, r, "debug.html", data)
	}
}
