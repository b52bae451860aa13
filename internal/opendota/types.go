package opendota

// MatchData is the match blob returned by GET /matches/{id}. Only the fields
// the reconciler and UI need are decoded; the raw body is stored verbatim.
type MatchData struct {
	MatchID    int64    `json:"match_id"`
	Duration   int      `json:"duration"`
	RadiantWin bool     `json:"radiant_win"`
	Players    []Player `json:"players"`
}

// Player is one per-player record inside a match blob. PlayerSlot uses
// OpenDota's seat numbering: 0-4 radiant, 128-132 dire.
type Player struct {
	AccountID   *int64  `json:"account_id"`
	PlayerSlot  int     `json:"player_slot"`
	HeroID      int     `json:"hero_id"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Assists     int     `json:"assists"`
	Personaname *string `json:"personaname"`
}

// Hero is one entry of the GET /heroes catalog.
type Hero struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
	Img           string `json:"img"`
	Icon          string `json:"icon"`
}

// PlayerHero is one entry of GET /players/{account_id}/heroes. OpenDota
// returns hero_id as a string here, unlike everywhere else.
type PlayerHero struct {
	HeroID string `json:"hero_id"`
	Games  int    `json:"games"`
	Win    int    `json:"win"`
}

type requestParseResponse struct {
	Job struct {
		JobID int64 `json:"jobId"`
	} `json:"job"`
}

// parseJobStatus is the GET /request/{jobId} body. While the parse job is in
// flight the job object (with its id) is echoed back; once the job has been
// consumed the body no longer carries it.
type parseJobStatus struct {
	ID *int64 `json:"id"`
}
