package powerbi

// Credentials are the service principal fields stored in the application secret.
type Credentials struct {
	TenantID     string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupList struct {
	Value []group `json:"value"`
}

type datasetItem struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ConfiguredBy      string `json:"configuredBy"`
	TargetStorageMode string `json:"targetStorageMode"`
	CreatedDate       string `json:"createdDate"`
}

type datasetList struct {
	Value []datasetItem `json:"value"`
}

type refreshItem struct {
	Status  string `json:"status"`
	EndTime string `json:"endTime"`
}

type refreshList struct {
	Value []refreshItem `json:"value"`
}

type queryRequest struct {
	Queries            []query            `json:"queries"`
	SerializerSettings serializerSettings `json:"serializerSettings"`
}

type query struct {
	Query string `json:"query"`
}

type serializerSettings struct {
	IncludeNulls bool `json:"includeNulls"`
}

type apiResponse struct {
	Results []result `json:"results"`
}

type result struct {
	Tables []table `json:"tables"`
}

type table struct {
	Rows []map[string]any `json:"rows"`
}

// rows flattens every result table into one row list.
func (r *apiResponse) rows() []map[string]any {
	var out []map[string]any
	for _, res := range r.Results {
		for _, t := range res.Tables {
			out = append(out, t.Rows...)
		}
	}
	return out
}
