package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/app/repository"
	"github.com/pokevisor/pokevisor/internal/pkg/session"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an email/password account and logs it in.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid registration data")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "Email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Registration failed")
	}

	if err := repo.Create(user); err != nil {
		log.Printf("register create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Registration failed")
	}

	if err := session.SetUserID(c, user.ID); err != nil {
		log.Printf("session save failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// HandleLogin authenticates an email/password user.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user.Password == "" || !models.CheckPasswordHash(req.Password, user.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if user.Status != models.STATUS_ACTIVE {
		return jsonError(c, fiber.StatusForbidden, "Account is disabled")
	}

	if err := session.SetUserID(c, user.ID); err != nil {
		log.Printf("session save failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Login failed")
	}
	if err := repo.TouchLastLogin(user.ID); err != nil {
		log.Printf("failed to update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

// HandleLogout clears the caller's session.
func HandleLogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		log.Printf("logout failed: %v", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleOAuthCallback completes a Goth flow, linking or creating the local
// user keyed by provider subject.
func HandleOAuthCallback(c *fiber.Ctx) error {
	gothUser, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Printf("oauth callback failed: %v", err)
		return jsonError(c, fiber.StatusUnauthorized, "OAuth sign-in failed")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByOAuthSubject(gothUser.Provider, gothUser.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("oauth lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "OAuth sign-in failed")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Fall back to email linking before creating a fresh account.
		if gothUser.Email != "" {
			if existing, emailErr := repo.GetByEmail(strings.ToLower(gothUser.Email)); emailErr == nil {
				existing.OAuthProvider = gothUser.Provider
				existing.OAuthSubject = gothUser.UserID
				if updErr := repo.Update(existing); updErr != nil {
					log.Printf("oauth link failed: %v", updErr)
					return jsonError(c, fiber.StatusInternalServerError, "OAuth sign-in failed")
				}
				user = existing
			}
		}
	}
	if user == nil {
		name := gothUser.Name
		if name == "" {
			name = gothUser.NickName
		}
		created, createErr := models.CreateOAuthUser(name, strings.ToLower(gothUser.Email), gothUser.Provider, gothUser.UserID)
		if createErr != nil {
			return jsonError(c, fiber.StatusBadRequest, "OAuth profile is incomplete")
		}
		if createErr := repo.Create(created); createErr != nil {
			log.Printf("oauth create failed: %v", createErr)
			return jsonError(c, fiber.StatusInternalServerError, "OAuth sign-in failed")
		}
		user = created
	}

	if err := session.SetUserID(c, user.ID); err != nil {
		log.Printf("session save failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "OAuth sign-in failed")
	}
	if err := repo.TouchLastLogin(user.ID); err != nil {
		log.Printf("failed to update last login for user %d: %v", user.ID, err)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}
