package dto

type PhotoRefRequest struct {
	PhotoID string `json:"photoId" query:"photoId" validate:"required,uuid"`
}

type CommentRequest struct {
	PhotoID  string `json:"photoId" validate:"required,uuid"`
	Text     string `json:"text" validate:"required"`
	UserName string `json:"userName"`
}

type LikesResponse struct {
	PhotoID string `json:"photoId"`
	Likes   int64  `json:"likes"`
}

type ViewsResponse struct {
	PhotoID string `json:"photoId"`
	Views   int64  `json:"views"`
}
