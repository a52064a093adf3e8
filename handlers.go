package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func GetRouter(config *Config) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/v1/compile", func(writer http.ResponseWriter, request *http.Request) {
		writeContentType(writer)
		requestId := tagRequest(writer)
		body, ok := readBody(writer, request, config)
		if !ok {
			return
		}
		glog.V(2).Infof("request %s: compile, %d bytes", requestId, len(body))
		response, jobErr := RunCompileJob(config, body, request.Header.Get("Content-Type"))
		if jobErr != nil {
			writeJobError(jobErr, writer)
			return
		}
		writeResponse(response, writer)
	}).Methods(http.MethodPost)

	router.HandleFunc("/v1/generate-client", func(writer http.ResponseWriter, request *http.Request) {
		writeContentType(writer)
		requestId := tagRequest(writer)
		body, ok := readBody(writer, request, config)
		if !ok {
			return
		}
		glog.V(2).Infof("request %s: generate-client, %d bytes", requestId, len(body))
		response, jobErr := RunClientGenJob(config, body)
		if jobErr != nil {
			writeJobError(jobErr, writer)
			return
		}
		writeResponse(response, writer)
	}).Methods(http.MethodPost)

	router.HandleFunc("/healthz", func(writer http.ResponseWriter, request *http.Request) {
		writeContentType(writer)
		writer.Write([]byte("{\"ok\": true}"))
	}).Methods(http.MethodGet)

	return router
}

// readBody drains the request body under the configured size cap. Oversized
// bodies get 413 before any job work starts.
func readBody(writer http.ResponseWriter, request *http.Request, config *Config) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, config.MaxBodyBytes))
	if err != nil {
		glog.Error(err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(err, http.StatusRequestEntityTooLarge, writer)
		} else {
			writeErrorResponse(err, http.StatusBadRequest, writer)
		}
		return nil, false
	}
	return body, true
}

func tagRequest(writer http.ResponseWriter) string {
	requestId := uuid.New().String()
	writer.Header().Set("X-Request-Id", requestId)
	return requestId
}

func writeResponse(response *FilesResponse, writer http.ResponseWriter) {
	data, err := json.Marshal(response)
	if err != nil {
		glog.Error(err)
		writeErrorResponse(err, http.StatusInternalServerError, writer)
		return
	}
	writer.Write(data)
}

func writeJobError(jobErr *JobError, writer http.ResponseWriter) {
	glog.Errorf("%s: %s", jobErr.Kind, jobErr.Message)
	writer.WriteHeader(jobErr.httpStatus())
	data, err := json.Marshal(ErrorResponse{Ok: false, Error: jobErr.Error()})
	if err != nil {
		glog.Error(err)
		writer.Write([]byte("{\"ok\": false, \"error\": \"internal error\"}"))
		return
	}
	writer.Write(data)
}

func writeErrorResponse(err error, status int, writer http.ResponseWriter) {
	writer.WriteHeader(status)
	escaped, marshalErr := json.Marshal(err.Error())
	if marshalErr != nil {
		escaped = []byte("\"internal error\"")
	}
	writer.Write([]byte(strings.Join([]string{"{\"ok\": false, \"error\": ", string(escaped), "}"}, "")))
}

func writeContentType(writer http.ResponseWriter) {
	writer.Header().Set("Content-Type", "application/json")
}
