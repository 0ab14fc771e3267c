package vtex

// Credentials identify one tenant's upstream account. They travel inside task
// payloads for the bulk insertion jobs, so every field is json-tagged.
type Credentials struct {
	Domain   string `json:"domain"`
	AppKey   string `json:"app_key"`
	AppToken string `json:"app_token"`
}

// Complete reports whether the upstream API can be called at all.
func (c Credentials) Complete() bool {
	return c.Domain != "" && c.AppKey != "" && c.AppToken != ""
}

// Catalog is the remote catalog record, reduced to the fields the pipeline
// reads.
type Catalog struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Vertical string `json:"vertical"`
}

// SKU is the per-item product state fetched on apply. The apply path
// re-derives the product row from this snapshot rather than replaying the
// original webhook payload.
type SKU struct {
	Id          string `json:"Id"`
	Name        string `json:"NameComplete"`
	Description string `json:"ProductDescription"`
	DetailUrl   string `json:"DetailUrl"`
	ImageUrl    string `json:"ImageUrl"`
	PriceCents  int64  `json:"PriceCents"`
	IsActive    bool   `json:"IsActive"`
}
