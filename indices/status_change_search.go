package indices

import (
	"context"
	"encoding/json"
	"fmt"
	"statusflow/bizerror"
	"statusflow/client/es"
	"statusflow/session"

	"github.com/fundwit/go-commons/types"
)

var SearchStatusChangesFunc = SearchStatusChanges

type StatusChangeSearch struct {
	ScopeID       types.ID `form:"scopeId" binding:"required"`
	ApplicationID types.ID `form:"applicationId"`
	TargetStatus  string   `form:"targetStatus"`
	UserID        types.ID `form:"userId"`
}

// SearchStatusChanges queries the history index of a scope, newest first.
func SearchStatusChanges(ctx context.Context, q StatusChangeSearch, sec *session.Context) ([]StatusChangeDocument, error) {
	if !sec.HasScopeViewPerm(q.ScopeID) {
		return nil, bizerror.ErrForbidden
	}

	filters := []es.H{{"term": es.H{"scopeId": q.ScopeID}}}
	if q.ApplicationID != 0 {
		filters = append(filters, es.H{"term": es.H{"applicationId": q.ApplicationID}})
	}
	if q.TargetStatus != "" {
		filters = append(filters, es.H{"term": es.H{"targetStatus": q.TargetStatus}})
	}
	if q.UserID != 0 {
		filters = append(filters, es.H{"term": es.H{"userId": q.UserID}})
	}
	query := es.H{
		"size":  1000,
		"query": es.H{"bool": es.H{"filter": filters}},
		"sort":  []es.H{{"performedOn": es.H{"order": "desc"}}},
	}

	r, err := es.SearchFunc(ctx, StatusChangeIndexName, query)
	if err != nil {
		return nil, err
	}
	docs := make([]StatusChangeDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := StatusChangeDocument{}
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("malformed document %s: %w", hit.Id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
