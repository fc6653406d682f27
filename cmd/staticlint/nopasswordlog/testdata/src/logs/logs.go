package logs

import (
	"fmt"
	"log"

	"go.uber.org/zap"
)

type form struct {
	Email    string
	Password string
}

type user struct {
	PasswordHash []byte
	HasPassword  bool
}

func signup(logger *zap.SugaredLogger, f form, usr user, password string) {
	logger.Infow("signup", "email", f.Email)
	logger.Infow("signup", "password", f.Password)       // want "Password is passed to a logger"
	logger.Errorw("hash", "hash", usr.PasswordHash)      // want "PasswordHash is passed to a logger"
	logger.Infow("signup", "has_password", usr.HasPassword)
	log.Printf("login with %s", password)                // want "password is passed to a logger"
	log.Println(fmt.Sprintf("raw %q", f.Password))       // want "Password is passed to a logger"
	fmt.Println(password)
}
