package storage

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrPhotoNotFound   = errors.New("photo not found")
	ErrPhotoExists     = errors.New("photo already exists")
	ErrCommentNotFound = errors.New("comment not found")
	ErrLikeNotFound    = errors.New("like not found")
	ErrAlreadyLiked    = errors.New("photo already liked")
)
