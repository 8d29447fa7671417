package application

type Metrics interface {
	IncPublished()
	IncPublishFailed()
	IncExpiryReset()
	SetPendingExpiries(n int)
}

type nopMetrics struct{}

func (nopMetrics) IncPublished()          {}
func (nopMetrics) IncPublishFailed()      {}
func (nopMetrics) IncExpiryReset()        {}
func (nopMetrics) SetPendingExpiries(int) {}

var _ Metrics = nopMetrics{}
