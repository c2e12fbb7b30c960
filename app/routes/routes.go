package routes

import (
	"net/http"
	"strings"

	"tasks-api/app/controllers"
	"tasks-api/app/logging"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, taskController *controllers.TaskController) {
	router.HandleFunc("/setup_database", taskController.SetupDatabase).Methods(http.MethodPost)
	router.HandleFunc("/tasks", taskController.GetTasks).Methods(http.MethodGet)
	router.HandleFunc("/tasks", taskController.CreateTask).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}", taskController.UpdateTask).Methods(http.MethodPatch)
	router.HandleFunc("/tasks/{taskID}", taskController.DeleteTask).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(controllers.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(controllers.MethodNotAllowed)
}

// NewHandler builds the router and wraps it with an allow-all CORS policy,
// request logging and panic recovery.
func NewHandler(taskController *controllers.TaskController, logger *log.Logger) http.Handler {
	router := mux.NewRouter()
	RegisterRoutes(router, taskController)
	return wrap(router, logger)
}

// wrap applies the middleware chain outside the router so unmatched routes
// and panics are logged too.
func wrap(h http.Handler, logger *log.Logger) http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel})),
		handlers.PrintRecoveryStack(true),
	)
	policy := cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{logging.RequestIDHeader},
		AllowCredentials: true,
	})
	return policy.Handler(logging.Middleware(logger)(recovery(trimTrailingSlash(h))))
}

// trimTrailingSlash serves "/tasks/" as "/tasks".
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}
