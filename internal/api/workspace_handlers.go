package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/models"
	"bizdesk/internal/reveal"
	"bizdesk/internal/service/workspace"
)

const accountTail = 4

// maskAccount hides the password and all but the last four digits of the
// account number unless the view revealed them.
func maskAccount(set *reveal.Set, a *models.BankAccount) *models.BankAccount {
	out := *a
	out.AccountNumber = set.ShowTail(reveal.FieldKey(workspace.KindAccount, a.ID, "account_number"), a.AccountNumber, accountTail)
	out.Password = set.Show(reveal.FieldKey(workspace.KindAccount, a.ID, "password"), a.Password)
	return &out
}

func maskPortal(set *reveal.Set, p *models.GovernmentPortal) *models.GovernmentPortal {
	out := *p
	out.Password = set.Show(reveal.FieldKey(workspace.KindPortal, p.ID, "password"), p.Password)
	return &out
}

func (h *Handler) listEntities(c *gin.Context) {
	list, err := h.workspace.ListEntities(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": list})
}

func (h *Handler) getEntity(c *gin.Context) {
	e, err := h.workspace.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) createEntity(c *gin.Context) {
	var in models.EntityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, err := h.workspace.CreateEntity(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) updateEntity(c *gin.Context) {
	var in models.EntityUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, err := h.workspace.UpdateEntity(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) deleteEntity(c *gin.Context) {
	if err := h.workspace.DeleteEntity(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCategories(c *gin.Context) {
	list, err := h.workspace.ListCategories(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *Handler) createCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cat, err := h.workspace.CreateCategory(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) listAccounts(c *gin.Context) {
	set, ok := h.revealSet(c)
	if !ok {
		return
	}
	list, err := h.workspace.ListAccounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]*models.BankAccount, 0, len(list))
	for _, a := range list {
		out = append(out, maskAccount(set, a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

func (h *Handler) getAccount(c *gin.Context) {
	set, ok := h.revealSet(c)
	if !ok {
		return
	}
	a, err := h.workspace.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, maskAccount(set, a))
}

func (h *Handler) createAccount(c *gin.Context) {
	var in models.BankAccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a, err := h.workspace.CreateAccount(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, maskAccount(nil, a))
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.workspace.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPortals(c *gin.Context) {
	set, ok := h.revealSet(c)
	if !ok {
		return
	}
	list, err := h.workspace.ListPortals(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]*models.GovernmentPortal, 0, len(list))
	for _, p := range list {
		out = append(out, maskPortal(set, p))
	}
	c.JSON(http.StatusOK, gin.H{"portals": out})
}

func (h *Handler) getPortal(c *gin.Context) {
	set, ok := h.revealSet(c)
	if !ok {
		return
	}
	p, err := h.workspace.GetPortal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, maskPortal(set, p))
}

func (h *Handler) createPortal(c *gin.Context) {
	var in models.PortalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := h.workspace.CreatePortal(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, maskPortal(nil, p))
}

func (h *Handler) deletePortal(c *gin.Context) {
	if err := h.workspace.DeletePortal(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) gosiSummary(c *gin.Context) {
	sum, err := h.workspace.GosiSummary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) listGosiInvoices(c *gin.Context) {
	list, err := h.workspace.ListGosiInvoices(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": list})
}

func (h *Handler) createGosiInvoice(c *gin.Context) {
	var in models.GosiInvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inv, check, err := h.workspace.CreateGosiInvoice(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": inv, "check": check})
}

func (h *Handler) setGosiInvoiceStatus(c *gin.Context) {
	var req struct {
		Status models.InvoiceStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.workspace.SetGosiInvoiceStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) checkGosiInvoice(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	check, err := h.workspace.CheckInvoice(c.Request.Context(), amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *Handler) listEmployees(c *gin.Context) {
	list, err := h.workspace.ListEmployees(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": list})
}

func (h *Handler) getEmployee(c *gin.Context) {
	e, err := h.workspace.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) createEmployee(c *gin.Context) {
	var in models.EmployeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, err := h.workspace.CreateEmployee(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) updateEmployee(c *gin.Context) {
	var in models.EmployeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, err := h.workspace.UpdateEmployee(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) employeePayroll(c *gin.Context) {
	list, err := h.workspace.Payroll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payroll": list})
}

func (h *Handler) listPolicies(c *gin.Context) {
	list, err := h.workspace.ListPolicies(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": list})
}

func (h *Handler) createPolicy(c *gin.Context) {
	var in models.PolicyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := h.workspace.CreatePolicy(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) listVendors(c *gin.Context) {
	list, err := h.workspace.ListVendors(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": list})
}

func (h *Handler) getVendor(c *gin.Context) {
	v, err := h.workspace.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) createVendor(c *gin.Context) {
	var in models.VendorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	v, err := h.workspace.CreateVendor(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) listVendorInvoices(c *gin.Context) {
	list, err := h.workspace.ListVendorInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": list})
}

func (h *Handler) createVendorInvoice(c *gin.Context) {
	var in models.VendorInvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inv, err := h.workspace.CreateVendorInvoice(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) payVendorInvoice(c *gin.Context) {
	inv, err := h.workspace.PayVendorInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) listFolders(c *gin.Context) {
	list, err := h.workspace.ListFolders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": list})
}

func (h *Handler) createFolder(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	f, err := h.workspace.CreateFolder(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) listDocuments(c *gin.Context) {
	list, err := h.workspace.ListDocuments(c.Request.Context(), strings.TrimSpace(c.Query("folder")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": list})
}

func (h *Handler) getDocument(c *gin.Context) {
	d, err := h.workspace.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) deleteDocument(c *gin.Context) {
	if err := h.workspace.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listReminders(c *gin.Context) {
	list, err := h.workspace.ListReminders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": list})
}

func (h *Handler) addReminder(c *gin.Context) {
	var in models.ReminderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	r, err := h.workspace.AddReminder(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) toggleReminder(c *gin.Context) {
	r, err := h.workspace.ToggleReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) deleteReminder(c *gin.Context) {
	if err := h.workspace.DeleteReminder(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) search(c *gin.Context) {
	filter := models.SearchFilter(c.DefaultQuery("filter", string(models.SearchAll)))
	res, err := h.workspace.Search(c.Request.Context(), c.Query("q"), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) notifications(c *gin.Context) {
	list, err := h.workspace.Notifications(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
