// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/diffeo/go-modelserve/serving"
)

// TrainGet returns the current or last training job for a service.
// If there is none, the body is empty.
func (api *restAPI) TrainGet(r *request) (interface{}, error) {
	q, err := r.JobQuery()
	if err != nil {
		return nil, err
	}
	r.Service = q.Service
	info, err := api.Platform.TrainStatus(r.Context, q)
	if err != nil || info == nil {
		return nil, err
	}
	return info, nil
}

// TrainStart starts a training job.  This handles both POST and PUT.
func (api *restAPI) TrainStart(r *request, payload serving.Payload) (interface{}, error) {
	r.Service = payloadService(payload)
	info, err := api.Platform.Train(r.Context, payload)
	if err != nil {
		return nil, err
	}
	created := responseCreated{Body: info}
	err = buildURLs(api.Router).
		Query(&created.Location, "train", url.Values{
			"service": {info.Service},
			"job":     {strconv.Itoa(info.ID)},
		}).
		Error
	return created, err
}

// TrainDelete cancels and forgets a training job, returning its
// final state.  If there was no job, the body is empty.
func (api *restAPI) TrainDelete(r *request) (interface{}, error) {
	q, err := r.JobQuery()
	if err != nil {
		return nil, err
	}
	r.Service = q.Service
	info, err := api.Platform.DeleteTrain(r.Context, q)
	if err != nil || info == nil {
		return nil, err
	}
	return info, nil
}

// PopulateTrain adds the training route to a router.
func (api *restAPI) PopulateTrain(r *mux.Router) {
	r.Path("/train").Name("train").Handler(&resourceHandler{
		api:    api,
		Route:  "train",
		Method: "/train",
		Get:    api.TrainGet,
		Put:    api.TrainStart,
		Post:   api.TrainStart,
		Delete: api.TrainDelete,
	})
}
