package model

type GeneratedQuery struct {
	Query string `json:"query"`
}

type GeneratedAnswer struct {
	Answer string `json:"answer"`
}
