package articlesync

import (
	"errors"
	"testing"
)

func TestArticlePayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload ArticlePayload
		wantErr bool
	}{
		{
			name:    "complete payload",
			payload: ArticlePayload{Title: "How to train your dragon", Description: "Ever wonder how?", Body: "You have to believe"},
		},
		{
			name:    "tags are optional",
			payload: ArticlePayload{Title: "t", Description: "d", Body: "b", TagList: []string{"dragons"}},
		},
		{
			name:    "missing title",
			payload: ArticlePayload{Description: "d", Body: "b"},
			wantErr: true,
		},
		{
			name:    "missing body",
			payload: ArticlePayload{Title: "t", Description: "d"},
			wantErr: true,
		},
		{
			name:    "empty payload",
			payload: ArticlePayload{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "valid", creds: Credentials{Email: "jake@jake.jake", Password: "secret"}},
		{name: "bad email", creds: Credentials{Email: "not-an-email", Password: "secret"}, wantErr: true},
		{name: "missing password", creds: Credentials{Email: "jake@jake.jake"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reg     Registration
		wantErr bool
	}{
		{name: "valid", reg: Registration{Username: "jake", Email: "jake@jake.jake", Password: "secret"}},
		{name: "short username", reg: Registration{Username: "jk", Email: "jake@jake.jake", Password: "secret"}, wantErr: true},
		{name: "short password", reg: Registration{Username: "jake", Email: "jake@jake.jake", Password: "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUserUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		update  UserUpdate
		wantErr bool
	}{
		{name: "empty update is fine", update: UserUpdate{}},
		{name: "bio only", update: UserUpdate{Bio: "I like dragons"}},
		{name: "bad email", update: UserUpdate{Email: "nope"}, wantErr: true},
		{name: "bad image url", update: UserUpdate{Image: "::not-a-url"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:    KindValidation,
		Status:  422,
		Message: "unprocessable entity",
		Fields:  map[string][]string{"title": {"can't be blank"}, "body": {"can't be blank"}},
	}
	got := err.Error()
	want := "validation (422): unprocessable entity; body can't be blank; title can't be blank"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_KindOf(t *testing.T) {
	inner := &Error{Kind: KindNotFound, Status: 404}
	wrapped := errors.Join(errors.New("request failed"), inner)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %v, want not_found", got)
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", got)
	}
}
