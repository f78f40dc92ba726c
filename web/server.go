package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/enginekit/color"
	"github.com/mogaika/enginekit/status"
	"github.com/mogaika/enginekit/vr"
	"github.com/mogaika/enginekit/vr/wsbridge"
)

const DefaultPrecision = 64

type Server struct {
	Manager *vr.Manager
	Status  *status.Hub
	// Bridge is nil unless the displays come from a browser page.
	Bridge *wsbridge.Bridge
	// WebPath holds the static files under data/, empty disables them.
	WebPath   string
	Precision int
	// quantize clamp used when the request has no min/max
	ClampMin, ClampMax *float32
	ClearColor         color.Color
}

func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/vr/displays", s.HandlerDisplays).Methods("GET")
	r.HandleFunc("/json/vr/state", s.HandlerState).Methods("GET")
	r.HandleFunc("/json/color/{hex}", HandlerColor).Methods("GET")
	r.HandleFunc("/json/color/{from}/{to}/{alpha}", HandlerColorLerp).Methods("GET")
	r.HandleFunc("/json/curves/value", HandlerCurvesValue).Methods("POST")
	r.HandleFunc("/json/curves/quantize", s.HandlerCurvesQuantize).Methods("POST")
	r.HandleFunc("/json/curves/yaml", HandlerCurvesYaml).Methods("POST")

	if s.Status != nil {
		r.Handle("/ws/status", s.Status)
	}
	if s.Bridge != nil {
		r.Handle("/ws/vr", s.Bridge)
	}
	if s.WebPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(s.WebPath, "data"))))
	}
	return r
}

func StartServer(addr string, s *Server) error {
	r := NewRouter(s)

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
