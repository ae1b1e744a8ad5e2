package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/user"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	err := readObject(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			in.Name, err = decodeString(d, key)
		case "email":
			in.Email, err = decodeString(d, key)
		case "password":
			in.Password, err = decodeString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeUser(e, u) })
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	err := readObject(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "email":
			email, err = decodeString(d, key)
		case "password":
			password, err = decodeString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.users.Login(r.Context(), email, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("token", func(e *jx.Encoder) { e.Str(s.Token) })
			e.Field("type", func(e *jx.Encoder) { e.Str("Bearer") })
			e.Field("expiresAt", func(e *jx.Encoder) { encodeTime(e, s.ExpiresAt) })
			e.Field("id", func(e *jx.Encoder) { e.Int64(s.User.ID) })
			e.Field("email", func(e *jx.Encoder) { e.Str(s.User.Email) })
			e.Field("name", func(e *jx.Encoder) { e.Str(s.User.Name) })
			e.Field("role", func(e *jx.Encoder) { e.Str(s.User.Role.String()) })
		})
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Profile(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	u, err := h.users.Get(r.Context(), id, p.UserID, p.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}

func encodeUser(e *jx.Encoder, u *user.User) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(u.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(u.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(u.Email) })
		e.Field("role", func(e *jx.Encoder) { e.Str(u.Role.String()) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, u.CreatedAt) })
	})
}
