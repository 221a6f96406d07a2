package model

type Query struct {
	Question string `json:"question"`
	Image    string `json:"image,omitempty"`
}

type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type AnswerResponse struct {
	Answer string `json:"answer"`
	Links  []Link `json:"links"`
}
