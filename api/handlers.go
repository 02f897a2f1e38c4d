package api

import (
	"net/http"

	"github.com/jacentio/arbor/auth"
	"github.com/jacentio/arbor/forum"
)

// --- Categories ---

func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListCategories(r.Context(), listQuery(r))
	if err != nil {
		s.serviceError(w, r, "categories", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"message":    "Fetched categories.",
		"categories": page.Categories,
		"totalItems": page.TotalItems,
		"lastPosts":  page.LastPosts,
	})
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "categoryId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find category.", nil)
		return
	}
	category, err := s.service.GetCategory(r.Context(), id, listQuery(r))
	if err != nil {
		s.serviceError(w, r, "category", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Category fetched.", "category": category})
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	category, err := s.service.CreateCategory(r.Context(), requester(r), forum.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "category", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"message": "Category created!", "category": category})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "categoryId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find category.", nil)
		return
	}
	var req updateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	category, err := s.service.UpdateCategory(r.Context(), requester(r), id, forum.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "category", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Category updated!", "category": category})
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "categoryId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find category.", nil)
		return
	}
	if err := s.service.DeleteCategory(r.Context(), requester(r), id); err != nil {
		s.serviceError(w, r, "category", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Category was deleted."})
}

// --- Forums ---

func (s *Server) getForums(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListForums(r.Context(), listQuery(r))
	if err != nil {
		s.serviceError(w, r, "forums", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"message":    "Fetched forums.",
		"forums":     page.Forums,
		"totalItems": page.TotalItems,
	})
}

func (s *Server) getForum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "forumId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find forum.", nil)
		return
	}
	f, err := s.service.ForumByDisplayID(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, "forum", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Forum fetched.", "forum": f})
}

func (s *Server) createForum(w http.ResponseWriter, r *http.Request) {
	var req forumRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	f, err := s.service.CreateForum(r.Context(), requester(r), forum.ForumInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "category", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"message": "Forum created!", "forum": f})
}

func (s *Server) updateForum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "forumId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find forum.", nil)
		return
	}
	var req updateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	f, err := s.service.UpdateForum(r.Context(), requester(r), id, forum.ForumInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "forum", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Forum updated!", "forum": f})
}

func (s *Server) deleteForum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "forumId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find forum.", nil)
		return
	}
	if err := s.service.DeleteForum(r.Context(), requester(r), id); err != nil {
		s.serviceError(w, r, "forum", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Forum was deleted."})
}

// --- Topics ---

func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "topicId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find topic.", nil)
		return
	}
	topic, err := s.service.TopicByDisplayID(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, "topic", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Topic fetched.", "topic": topic})
}

func (s *Server) getTopicPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "topicId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find topic.", nil)
		return
	}
	page, err := s.service.ListTopicPosts(r.Context(), id, listQuery(r))
	if err != nil {
		s.serviceError(w, r, "topic", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"message":    "Fetched posts.",
		"posts":      page.Posts,
		"totalItems": page.TotalItems,
		"topic":      page.Topic,
	})
}

func (s *Server) createTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	topic, err := s.service.CreateTopic(r.Context(), requester(r), forum.TopicInput{
		ForumID:     req.ForumID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "forum", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"message": "Topic created!", "topic": topic})
}

func (s *Server) updateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "topicId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find topic.", nil)
		return
	}
	var req updateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	topic, err := s.service.UpdateTopic(r.Context(), requester(r), id, forum.TopicInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "topic", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Topic updated!", "topic": topic})
}

func (s *Server) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "topicId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find topic.", nil)
		return
	}
	if err := s.service.DeleteTopic(r.Context(), requester(r), id); err != nil {
		s.serviceError(w, r, "topic", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Topic was deleted."})
}

// --- Posts ---

func (s *Server) getPosts(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListPosts(r.Context(), listQuery(r))
	if err != nil {
		s.serviceError(w, r, "posts", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"message":    "Fetched posts.",
		"posts":      page.Posts,
		"totalItems": page.TotalItems,
	})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find post.", nil)
		return
	}
	post, err := s.service.ReadPost(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, "post", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Post fetched.", "post": post})
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	post, err := s.service.CreatePost(r.Context(), requester(r), forum.PostInput{
		TopicID:     req.TopicID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "topic", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"message": "Post created!", "post": post})
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find post.", nil)
		return
	}
	var req updateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	post, err := s.service.UpdatePost(r.Context(), requester(r), id, forum.PostInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.serviceError(w, r, "post", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Post updated!", "post": post})
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find post.", nil)
		return
	}
	if err := s.service.DeletePost(r.Context(), requester(r), id); err != nil {
		s.serviceError(w, r, "post", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "Post was deleted."})
}

// --- Users ---

func (s *Server) getUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListUsers(r.Context(), listQuery(r))
	if err != nil {
		s.serviceError(w, r, "users", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"message":    "Fetched users.",
		"users":      page.Users,
		"totalItems": page.TotalItems,
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find user.", nil)
		return
	}
	user, err := s.service.UserByDisplayID(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, "user", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "User fetched.", "user": user})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find user.", nil)
		return
	}
	var req userUpdateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	user, err := s.service.UpdateUser(r.Context(), requester(r), id, forum.UserUpdateInput{
		Name:     req.Name,
		Rank:     req.Rank,
		Location: req.Location,
	})
	if err != nil {
		s.serviceError(w, r, "user", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "User updated!", "user": user})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userId")
	if !ok {
		s.errorJSON(w, http.StatusNotFound, "Could not find user.", nil)
		return
	}
	if err := s.service.DeleteUser(r.Context(), requester(r), id); err != nil {
		s.serviceError(w, r, "user", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "User was deleted."})
}

// --- Auth ---

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.serviceError(w, r, "user", err)
		return
	}
	user, err := s.service.CreateUser(r.Context(), forum.SignupInput{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	})
	if err != nil {
		s.serviceError(w, r, "user", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"message": "User created.", "userId": user.ID})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	user, err := s.service.UserByEmail(r.Context(), req.Email)
	if err != nil {
		s.errorJSON(w, http.StatusUnauthorized, "A user does not exists.", nil)
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		s.serviceError(w, r, "user", forum.ErrBadCredentials)
		return
	}
	token, err := s.tokens.Sign(user.ID, user.Email, user.Name)
	if err != nil {
		s.serviceError(w, r, "user", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"token":  token,
		"userId": user.ID,
		"user": envelope{
			"_id":   user.ID,
			"id":    user.DisplayID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
			"rank":  user.Rank,
		},
	})
}
