package controllers

import (
	"github.com/ManuelReschke/UrbanFix/internal/pkg/account"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// CaptchaVerifier checks a signup captcha token.
type CaptchaVerifier func(token string) (bool, error)

// AuthController handles signup, login and logout for all three roles
type AuthController struct {
	accounts *account.Service
	captcha  CaptchaVerifier
}

// NewAuthController creates the controller. captcha may be nil to disable the check.
func NewAuthController(accounts *account.Service, captcha CaptchaVerifier) *AuthController {
	return &AuthController{accounts: accounts, captcha: captcha}
}

type signupRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
	CaptchaToken    string `json:"h-captcha-response" form:"h-captcha-response"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// HandleSignup registers a citizen account and logs it in
func (ac *AuthController) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if ac.captcha != nil {
		if ok, err := ac.captcha(req.CaptchaToken); !ok {
			log.Infof("[Auth] Signup captcha rejected: %v", err)
			return respondError(c, apperror.Validation("captcha", "please solve the captcha"))
		}
	}

	u, err := ac.accounts.Signup(c.UserContext(), account.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return respondError(c, err)
	}
	actor := authz.Actor{ID: u.ID, Role: authz.RoleCitizen, Name: u.Name}
	if err := session.SetActor(c, actor); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(actor)
}

func (ac *AuthController) login(c *fiber.Ctx, asAdmin bool) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	actor, err := ac.accounts.Login(c.UserContext(), req.Username, req.Password, asAdmin)
	if err != nil {
		return respondError(c, err)
	}
	if err := session.SetActor(c, actor); err != nil {
		return respondError(c, err)
	}
	return c.JSON(actor)
}

// HandleLogin authenticates a citizen (or admin) by username
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	return ac.login(c, false)
}

// HandleAdminLogin authenticates an admin by username
func (ac *AuthController) HandleAdminLogin(c *fiber.Ctx) error {
	return ac.login(c, true)
}

// HandleContractorLogin authenticates a contractor by email
func (ac *AuthController) HandleContractorLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	actor, err := ac.accounts.LoginContractor(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if err := session.SetActor(c, actor); err != nil {
		return respondError(c, err)
	}
	return c.JSON(actor)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Clear(c); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleMe returns the actor of the current session
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	actor := currentActor(c)
	return c.JSON(fiber.Map{
		"authenticated": actor.IsAuthenticated(),
		"actor":         actor,
	})
}
