package ipm

import "image"

// Model is what a Presenter reads the pending IPM from and reports user
// input to. CoordinatorModel serves in-process hosts; remote hosts supply
// their own.
type Model interface {
	Ipm() *Payload
	Avatar() image.Image
	OnAction()
	OnDismiss(reason DismissReason)
}

// CoordinatorModel adapts a Coordinator to Model.
type CoordinatorModel struct {
	Coordinator *Coordinator
}

func (m CoordinatorModel) Ipm() *Payload       { return m.Coordinator.Ipm() }
func (m CoordinatorModel) Avatar() image.Image { return m.Coordinator.Avatar() }
func (m CoordinatorModel) OnAction()           { m.Coordinator.HandleAction() }

func (m CoordinatorModel) OnDismiss(reason DismissReason) {
	m.Coordinator.HandleDismiss(reason)
}
