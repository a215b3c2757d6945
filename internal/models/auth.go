// Входные/выходные модели REST-слоя.
package models

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Done    bool   `json:"done"`
	Message string `json:"message"`
}

// TokensResponse — тело ответа login/refresh; те же значения уходят в cookie.
type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ProfileResponse struct {
	ID        string   `json:"_id"`
	Email     string   `json:"email"`
	Favorites []string `json:"favorites"`
}

func TokensFromPair(p *TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}
}

func ProfileToResponse(p Profile) ProfileResponse {
	favorites := p.Favorites
	if favorites == nil {
		favorites = []string{}
	}

	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Favorites: favorites,
	}
}
