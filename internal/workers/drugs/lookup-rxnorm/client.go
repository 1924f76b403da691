// internal/workers/drugs/lookup-rxnorm/client.go
package lookuprxnorm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	apphttp "clinic-inventory-workers/internal/common/http"
)

type candidate struct {
	RxCUI string `json:"rxcui"`
	Name  string `json:"name"`
}

// candidateList accepts both a single candidate object and an array.
type candidateList []candidate

func (l *candidateList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var many []candidate
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	var one candidate
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = candidateList{one}
	return nil
}

type approximateTermResponse struct {
	ApproximateGroup struct {
		Candidate candidateList `json:"candidate"`
	} `json:"approximateGroup"`
}

type allPropertiesResponse struct {
	PropConceptGroup struct {
		PropConcept []struct {
			PropCategory string `json:"propCategory"`
			PropName     string `json:"propName"`
			PropValue    string `json:"propValue"`
		} `json:"propConcept"`
	} `json:"propConceptGroup"`
}

type ndcsResponse struct {
	NDCGroup struct {
		NDCList struct {
			NDC []string `json:"ndc"`
		} `json:"ndcList"`
	} `json:"ndcGroup"`
}

// rxnavClient is a thin client over the RxNav REST endpoints.
type rxnavClient struct {
	http    *apphttp.Client
	baseURL string
}

func newRxnavClient(httpClient *apphttp.Client, baseURL string) *rxnavClient {
	return &rxnavClient{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *rxnavClient) approximateTerm(ctx context.Context, term string) ([]candidate, error) {
	u := fmt.Sprintf("%s/approximateTerm.json?term=%s&maxEntries=%d",
		c.baseURL, url.QueryEscape(term), candidateLimit)

	var resp approximateTermResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.ApproximateGroup.Candidate, nil
}

func (c *rxnavClient) properties(ctx context.Context, rxcui string) (map[string]string, error) {
	u := fmt.Sprintf("%s/rxcui/%s/allProperties.json?prop=all", c.baseURL, url.PathEscape(rxcui))

	var resp allPropertiesResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	props := make(map[string]string, len(resp.PropConceptGroup.PropConcept))
	for _, p := range resp.PropConceptGroup.PropConcept {
		props[p.PropName] = p.PropValue
	}
	return props, nil
}

func (c *rxnavClient) ndcs(ctx context.Context, rxcui string) ([]string, error) {
	u := fmt.Sprintf("%s/rxcui/%s/ndcs.json", c.baseURL, url.PathEscape(rxcui))

	var resp ndcsResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.NDCGroup.NDCList.NDC, nil
}
