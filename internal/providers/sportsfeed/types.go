package sportsfeed

type gamesResponse struct {
	Data []gameResponse `json:"data"`
	Meta metaResponse   `json:"meta"`
}

type gameResponse struct {
	ID            int          `json:"id"`
	Sport         string       `json:"sport"`
	StartTime     string       `json:"start_time"`
	Status        string       `json:"status"`
	Period        int          `json:"period"`
	TimeRemaining string       `json:"time_remaining"`
	HomeTeam      teamResponse `json:"home_team"`
	AwayTeam      teamResponse `json:"away_team"`
	HomeScore     int          `json:"home_score"`
	AwayScore     int          `json:"away_score"`
}

type teamResponse struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type metaResponse struct {
	TotalPages int `json:"total_pages"`
}
