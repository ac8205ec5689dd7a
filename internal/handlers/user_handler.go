package handlers

import (
	"net/http"

	"mentorhub_backend/internal/middleware"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// UserHandler отвечает за администрирование учетных записей обеих
// коллекций: staff-аккаунты и студенты.
type UserHandler struct {
	*BaseHandler
	userService services.UserService
	authService services.AuthService
}

func NewUserHandler(base *BaseHandler, userService services.UserService, authService services.AuthService) *UserHandler {
	return &UserHandler{
		BaseHandler: base,
		userService: userService,
		authService: authService,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(authMW, middleware.RoleMiddleware(models.RoleAdmin))
	{
		admin.POST("/staff", h.CreateStaff)
		admin.GET("/staff", h.ListStaff)
		admin.GET("/staff/:userId", h.GetStaff)
		admin.PUT("/staff/:userId/active", h.SetStaffActive)

		admin.POST("/students", h.CreateStudent)
		admin.GET("/students/:studentId", h.GetStudent)
		admin.PUT("/students/:studentId/active", h.SetStudentActive)
		admin.PUT("/students/:studentId/advisor", h.AssignAdvisor)
	}

	students := rg.Group("/students")
	students.Use(authMW, middleware.RequireRoles(models.RoleAdvisor, models.RoleAdmin))
	{
		students.GET("", h.ListStudents)
	}
}

func (h *UserHandler) CreateStaff(c *gin.Context) {
	var req dto.RegisterStaffRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	staff, err := h.authService.RegisterStaff(db, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, staff)
}

func (h *UserHandler) ListStaff(c *gin.Context) {
	db := h.GetDB(c)

	role := models.UserRole(c.Query("role"))

	staff, err := h.userService.ListStaff(db, role)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"staff": staff,
		"total": len(staff),
	})
}

func (h *UserHandler) GetStaff(c *gin.Context) {
	db := h.GetDB(c)
	userID := c.Param("userId")

	staff, err := h.userService.GetStaff(db, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, staff)
}

func (h *UserHandler) SetStaffActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	userID := c.Param("userId")

	if err := h.userService.SetStaffActive(db, userID, *req.Active); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account status updated"})
}

func (h *UserHandler) CreateStudent(c *gin.Context) {
	var req dto.RegisterStudentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	student, err := h.authService.RegisterStudent(db, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

func (h *UserHandler) GetStudent(c *gin.Context) {
	db := h.GetDB(c)
	studentID := c.Param("studentId")

	student, err := h.userService.GetStudent(db, studentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *UserHandler) SetStudentActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	studentID := c.Param("studentId")

	if err := h.userService.SetStudentActive(db, studentID, *req.Active); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account status updated"})
}

func (h *UserHandler) AssignAdvisor(c *gin.Context) {
	var req dto.AssignAdvisorRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	studentID := c.Param("studentId")

	student, err := h.userService.AssignAdvisor(db, studentID, req.AdvisorID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *UserHandler) ListStudents(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	students, err := h.userService.ListStudents(db, identity)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"total":    len(students),
	})
}
