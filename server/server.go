package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"

	"github.com/jmgilman/go/errors"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/vfs"
)

// Request is the JSON body every operation accepts; each operation
// reads only the fields it needs.
type Request struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Offset  uint64 `json:"offset"`
	Token   string `json:"token"`
}

type Response struct {
	Result interface{} `json:"result"`
}

type operation func(s *vfs.Service, req *Request) (interface{}, error)

var operations = map[string]operation{
	"initVolume": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.InitVolume(req.Token)
	},
	"list": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.List(req.Path)
	},
	"listRootSizes": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.ListRootSizes()
	},
	"readWhole": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.ReadWhole(req.Path)
	},
	"readLines": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.ReadLines(req.Path)
	},
	"readFromOffset": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.ReadFromOffset(req.Path, req.Offset)
	},
	"makeDirectory": func(s *vfs.Service, req *Request) (interface{}, error) {
		return nil, s.MakeDirectory(req.Path)
	},
	"remove": func(s *vfs.Service, req *Request) (interface{}, error) {
		return nil, s.Remove(req.Path)
	},
	"append": func(s *vfs.Service, req *Request) (interface{}, error) {
		return nil, s.Append(req.Path, req.Content)
	},
	"overwrite": func(s *vfs.Service, req *Request) (interface{}, error) {
		return nil, s.Overwrite(req.Path, req.Content)
	},
	"tree": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.Tree()
	},
	"info": func(s *vfs.Service, req *Request) (interface{}, error) {
		return s.Info()
	},
}

// New returns the handler exposing svc: POST /api/<operation> and
// GET /health.
func New(svc *vfs.Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{operation}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("operation")
		op, ok := operations[name]
		if !ok {
			sendError(w, errors.Newf(errors.CodeNotFound, "unknown operation %q", name))
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			sendError(w, errors.Wrap(err, errors.CodeInvalidInput, "malformed request body"))
			return
		}
		result, err := op(svc, &req)
		if err != nil {
			log.Printf("%s %q: %v\n", name, req.Path, err)
			sendError(w, err)
			return
		}
		sendJSONResponse(w, Response{Result: result}, http.StatusOK)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"status":  "ok",
			"mounted": svc.Mounted(),
		}
		sendJSONResponse(w, response, http.StatusOK)
	})
	return mux
}

// Operations lists the names New dispatches under /api/, sorted.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sendError(w http.ResponseWriter, err error) {
	response := errors.ToJSON(err)
	sendJSONResponse(w, response, StatusCode(errors.GetCode(err)))
}

func sendJSONResponse(w http.ResponseWriter, response interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("encode response: %v\n", err)
	}
}

// StatusCode maps an error code to the HTTP status reported for it.
func StatusCode(code errors.ErrorCode) int {
	switch code {
	case stablefs.CodePathFormat, stablefs.CodeTextDecode, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists, stablefs.CodeNotADirectory, stablefs.CodeIsADirectory, stablefs.CodeDirectoryNotEmpty:
		return http.StatusConflict
	case stablefs.CodeStorageExhausted:
		return http.StatusInsufficientStorage
	case stablefs.CodeVolumeNotFormatted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
